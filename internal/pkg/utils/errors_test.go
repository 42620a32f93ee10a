package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("olia")
	tests := []struct {
		name string
		err  error
	}{
		{name: "storage", err: NewErrStorageWrite(cause)},
		{name: "init", err: NewErrUploadInit(cause)},
		{name: "transfer", err: NewErrUploadTransfer(cause)},
		{name: "generation", err: NewErrGeneration(cause)},
		{name: "parse", err: NewErrParse(cause, "raw")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, cause))
			assert.Contains(t, tt.err.Error(), "olia")
		})
	}
}

func TestErrorsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewErrUploadInit(errors.New("olia")))
	var errInit *ErrUploadInit
	assert.True(t, errors.As(wrapped, &errInit))
}

func TestErrProcessingTimeout(t *testing.T) {
	err := NewErrProcessingTimeout("PROCESSING")
	var errTimeout *ErrProcessingTimeout
	require.True(t, errors.As(err, &errTimeout))
	assert.Equal(t, "PROCESSING", errTimeout.LastState)
	assert.Contains(t, err.Error(), "PROCESSING")
}

func TestErrParse_KeepsRaw(t *testing.T) {
	err := NewErrParse(errors.New("olia"), "model text")
	var errParse *ErrParse
	require.True(t, errors.As(err, &errParse))
	assert.Equal(t, "model text", errParse.Raw)
}

func TestErrValidation(t *testing.T) {
	err := NewErrValidation("wrong count")
	assert.Contains(t, err.Error(), "wrong count")
}

func TestSQLStr(t *testing.T) {
	assert.True(t, ToSQLStr("olia").Valid)
	assert.False(t, ToSQLStr("").Valid)
	assert.Equal(t, "olia", FromSQLStr(ToSQLStr("olia")))
	assert.Equal(t, "", FromSQLStr(ToSQLStr("")))
}
