package usecase

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const MaxRecipients = 1000

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

type SendMessageInput struct {
	Channel      string   `json:"channel" validate:"required,oneof=in_app sms whatsapp email"`
	Subject      string   `json:"subject" validate:"max=200"`
	Body         string   `json:"body" validate:"required,max=2000"`
	RecipientIDs []string `json:"recipient_ids" validate:"omitempty,max=1000,dive,required"`
	Audience     string   `json:"audience" validate:"omitempty,oneof=all_students"`
}

func (in SendMessageInput) Validate() error {
	return validate.Struct(in)
}
