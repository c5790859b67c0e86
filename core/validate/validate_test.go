package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"VidTube/core/apperr"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=8"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(signup{Email: "a@x.com", Username: "alice"}))

	tests := []struct {
		name string
		in   signup
		msg  string
	}{
		{"missing email", signup{Username: "alice"}, "email is required"},
		{"bad email", signup{Email: "nope", Username: "alice"}, "email must be a valid email address"},
		{"long username", signup{Email: "a@x.com", Username: "aliceinwonderland"}, "username must be at most 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			var appErr *apperr.Error
			if assert.True(t, errors.As(err, &appErr)) {
				assert.Equal(t, tt.msg, appErr.Message)
				assert.Equal(t, 400, appErr.StatusCode)
			}
		})
	}
}

func TestBlank(t *testing.T) {
	assert.False(t, Blank("a", "b"))
	assert.True(t, Blank("a", "  "))
	assert.True(t, Blank(""))
	assert.False(t, Blank())
}
