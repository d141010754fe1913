package creditclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"studyspot/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/credits/consume", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Internal-API-Key"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3), req.Amount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{TenantID: req.TenantID, CreditType: req.CreditType, Balance: 97})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "secret")
	res, err := client.Consume(context.Background(), Request{TenantID: "t1", CreditType: "sms", Amount: 3, Reference: "msg-1"})

	require.NoError(t, err)
	assert.Equal(t, int64(97), res.Balance)
}

func TestConsume_Insufficient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"Insufficient sms credits","code":"INSUFFICIENT_CREDITS"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "secret").Consume(context.Background(), Request{TenantID: "t1", CreditType: "sms", Amount: 500})

	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusPaymentRequired, appErr.Status)
	assert.Equal(t, CodeInsufficientCredits, appErr.Code)
	assert.Equal(t, "Insufficient sms credits", appErr.Message)
}

func TestConsume_ClientAndServerErrors(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"bad credit type","code":"VALIDATION_FAILED"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Refund(context.Background(), Request{})
	assert.True(t, apperror.IsCode(err, "VALIDATION_FAILED"))

	status = http.StatusBadGateway
	_, err = client.Refund(context.Background(), Request{})
	require.Error(t, err)
	_, ok := apperror.As(err)
	assert.False(t, ok)
}

func TestClient_NoBaseURL(t *testing.T) {
	_, err := NewClient("", "k").Grant(context.Background(), Request{})
	assert.Error(t, err)
}
