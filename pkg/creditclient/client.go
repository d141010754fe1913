// Package creditclient calls the credit service's internal API.
package creditclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"studyspot/pkg/apperror"
)

const CodeInsufficientCredits = "INSUFFICIENT_CREDITS"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type Request struct {
	TenantID   string `json:"tenant_id"`
	CreditType string `json:"credit_type"`
	Amount     int64  `json:"amount"`
	Reference  string `json:"reference"`
}

type Result struct {
	TenantID   string `json:"tenant_id"`
	CreditType string `json:"credit_type"`
	Balance    int64  `json:"balance"`
}

// Consume debits credits. A 402 from the credit service comes back as an
// *apperror.AppError with code INSUFFICIENT_CREDITS.
func (c *Client) Consume(ctx context.Context, req Request) (*Result, error) {
	return c.post(ctx, "/internal/credits/consume", req)
}

func (c *Client) Refund(ctx context.Context, req Request) (*Result, error) {
	return c.post(ctx, "/internal/credits/refund", req)
}

func (c *Client) Grant(ctx context.Context, req Request) (*Result, error) {
	return c.post(ctx, "/internal/credits/grant", req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("credit service base URL is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&envelope)

		if resp.StatusCode == http.StatusPaymentRequired {
			msg := envelope.Error
			if msg == "" {
				msg = "Insufficient credits"
			}
			return nil, apperror.PaymentRequired(CodeInsufficientCredits, msg)
		}
		if resp.StatusCode < 500 && envelope.Code != "" {
			return nil, apperror.New(resp.StatusCode, envelope.Code, envelope.Error)
		}
		return nil, fmt.Errorf("credit service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode credit service response: %w", err)
	}
	return &result, nil
}
