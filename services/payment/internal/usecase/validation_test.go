package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failedFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)
	out := map[string]string{}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func TestRecordPaymentInput_Validate(t *testing.T) {
	valid := RecordPaymentInput{StudentID: "s1", Amount: 5000, Method: "upi", Purpose: "membership"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*RecordPaymentInput)
		field  string
		tag    string
	}{
		{"zero amount", func(in *RecordPaymentInput) { in.Amount = 0 }, "amount", "gt"},
		{"negative amount", func(in *RecordPaymentInput) { in.Amount = -1 }, "amount", "gt"},
		{"above maximum", func(in *RecordPaymentInput) { in.Amount = MaxPaymentAmount + 1 }, "amount", "lte"},
		{"unknown method", func(in *RecordPaymentInput) { in.Method = "cheque" }, "method", "oneof"},
		{"unknown purpose", func(in *RecordPaymentInput) { in.Purpose = "donation" }, "purpose", "oneof"},
		{"notes too long", func(in *RecordPaymentInput) { in.Notes = strings.Repeat("n", 501) }, "notes", "max"},
		{"booking purpose without booking", func(in *RecordPaymentInput) { in.Purpose = "booking" }, "booking_id", "required_if"},
		{"missing student", func(in *RecordPaymentInput) { in.StudentID = "" }, "student_id", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			assert.Equal(t, tt.tag, failedFields(t, in.Validate())[tt.field])
		})
	}
}

func TestRecordPaymentInput_BoundaryAmounts(t *testing.T) {
	in := RecordPaymentInput{StudentID: "s1", Amount: MaxPaymentAmount, Method: "cash", Purpose: "booking", BookingID: "b1"}
	assert.NoError(t, in.Validate())

	in.Amount = 1
	assert.NoError(t, in.Validate())
}

func TestRefundInput_Validate(t *testing.T) {
	assert.NoError(t, RefundInput{Amount: 100, Reason: "duplicate"}.Validate())
	assert.Equal(t, "gt", failedFields(t, RefundInput{Amount: 0, Reason: "x"}.Validate())["amount"])
	assert.Equal(t, "required", failedFields(t, RefundInput{Amount: 10}.Validate())["reason"])
}
