package usecase

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxPaymentAmount = 10_000_000

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type RecordPaymentInput struct {
	StudentID string `json:"student_id" validate:"required"`
	BookingID string `json:"booking_id" validate:"required_if=Purpose booking"`
	Amount    int64  `json:"amount" validate:"gt=0,lte=10000000"`
	Method    string `json:"method" validate:"required,oneof=cash upi card bank_transfer online"`
	Purpose   string `json:"purpose" validate:"required,oneof=booking membership credit_purchase other"`
	Notes     string `json:"notes" validate:"max=500"`
}

type RefundInput struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Reason string `json:"reason" validate:"required,max=500"`
}

// Validate reports rule violations as validator.ValidationErrors.
func (in RecordPaymentInput) Validate() error {
	return validate.Struct(in)
}

func (in RefundInput) Validate() error {
	return validate.Struct(in)
}
