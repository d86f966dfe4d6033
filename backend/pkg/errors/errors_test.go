package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidation("missing key"), http.StatusBadRequest},
		{"reference", NewReference("person", "p1"), http.StatusBadRequest},
		{"not found", NewNotFound("circle", "c1"), http.StatusNotFound},
		{"auth", NewAuth("bad token", nil), http.StatusForbidden},
		{"authorization", NewAuthorization("not yours"), http.StatusForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped domain error", fmt.Errorf("handler: %w", NewNotFound("event", "e1")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	err := NewValidation("bad payload")

	assert.True(t, IsType(err, TypeValidation))
	assert.False(t, IsType(err, TypeNotFound))
	assert.True(t, IsType(fmt.Errorf("wrapped: %w", err), TypeValidation))
	assert.False(t, IsType(errors.New("plain"), TypeValidation))
}

func TestValidation_CollectsAllViolations(t *testing.T) {
	err := NewValidation(`missing required key "email"`, `key "People" must be a list of id strings`)

	assert.Len(t, err.Violations, 2)
	assert.Equal(t, `missing required key "email"; key "People" must be a list of id strings`, err.Message)
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("token expired")
	err := NewAuth("verification failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "token expired")
}
