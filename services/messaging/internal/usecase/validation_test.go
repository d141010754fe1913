package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageInput_Validate(t *testing.T) {
	valid := SendMessageInput{Channel: "sms", Body: "Fees due Friday", RecipientIDs: []string{"s1"}}

	tests := []struct {
		name  string
		edit  func(*SendMessageInput)
		field string
	}{
		{"valid", func(*SendMessageInput) {}, ""},
		{"audience only", func(in *SendMessageInput) { in.RecipientIDs = nil; in.Audience = "all_students" }, ""},
		{"unknown channel", func(in *SendMessageInput) { in.Channel = "fax" }, "channel"},
		{"empty body", func(in *SendMessageInput) { in.Body = "" }, "body"},
		{"body too long", func(in *SendMessageInput) { in.Body = strings.Repeat("a", 2001) }, "body"},
		{"blank recipient", func(in *SendMessageInput) { in.RecipientIDs = []string{"s1", ""} }, "recipient_ids[1]"},
		{"unknown audience", func(in *SendMessageInput) { in.Audience = "everyone" }, "audience"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			err := in.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}
