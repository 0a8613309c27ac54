package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "GraphCache", "ApplyPut", "decode key")
	require.Error(t, err)
	assert.Equal(t, "GraphCache.ApplyPut: decode key failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"wrapped transient", WrapTransient(ErrConnectionLost, "Substrate", "Declare", "token"), ErrorTransient},
		{"wrapped invalid", WrapInvalid(ErrMalformedKey, "Codec", "Decode", "parse"), ErrorInvalid},
		{"wrapped fatal", WrapFatal(ErrConstruction, "Context", "Open", "session"), ErrorFatal},
		{"sentinel decode", fmt.Errorf("peer sent garbage: %w", ErrMalformedKey), ErrorInvalid},
		{"sentinel duplicate", ErrDuplicateHandle, ErrorInvalid},
		{"sentinel construction", ErrConstruction, ErrorFatal},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"unknown defaults transient", stderrors.New("mystery"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsTransientPatternMatch(t *testing.T) {
	assert.True(t, IsTransient(stderrors.New("i/o timeout talking to server")))
	assert.True(t, IsTransient(stderrors.New("service unavailable")))
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrMalformedKey))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	err := WrapInvalid(ErrUnknownKind, "Codec", "Decode", "kind segment")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, ErrorInvalid, ce.Class)
	assert.Equal(t, "Codec", ce.Component)
	assert.True(t, stderrors.Is(err, ErrUnknownKind))
}
