package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidPath, "root path does not exist: %s", "/nope")

	assert.Equal(t, ErrCodeInvalidPath, err.Code)
	assert.Equal(t, "root path does not exist: /nope", err.Message)
	assert.EqualError(t, err, "INVALID_PATH: root path does not exist: /nope")
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeInvalidManifest, cause, "parse package.json")

	assert.Equal(t, ErrCodeInvalidManifest, err.Code)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "INVALID_MANIFEST: parse package.json: unexpected EOF")
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeInvalidPath, "test"), ErrCodeInvalidPath, true},
		{"non-matching code", New(ErrCodeInvalidPath, "test"), ErrCodePrecondition, false},
		{"fmt wrapped", fmt.Errorf("scan: %w", New(ErrCodeInvalidPath, "inner")), ErrCodeInvalidPath, true},
		{"non-Error type", errors.New("plain error"), ErrCodeInvalidInput, false},
		{"nil error", nil, ErrCodeInvalidInput, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Is(tt.err, tt.code))
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"Error type", New(ErrCodeInvalidPackage, "test"), ErrCodeInvalidPackage},
		{"precondition", Precondition("stats not computed"), ErrCodePrecondition},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "friendly message", UserMessage(New(ErrCodeInvalidInput, "friendly message")))
	assert.Equal(t, "plain error", UserMessage(errors.New("plain error")))
}
