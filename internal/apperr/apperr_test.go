package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindRateLimited, true},
		{KindTransientNetwork, true},
		{KindQuotaExceeded, false},
		{KindCredentialExpired, false},
		{KindPermanentRejected, false},
		{KindValidation, false},
		{KindAIGenerationFailed, false},
	}

	for _, c := range cases {
		t.Run(string(c.kind), func(t *testing.T) {
			err := New(c.kind, "test")
			assert.Equal(t, c.want, Retryable(err))
		})
	}
}

func TestRetryable_PlainError(t *testing.T) {
	assert.False(t, Retryable(errors.New("not classified")))
	assert.False(t, Retryable(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindTransientNetwork, "instagram call failed", cause)

	// Kind survives another layer of wrapping.
	outer := fmt.Errorf("dispatch: %w", err)

	assert.Equal(t, KindTransientNetwork, KindOf(outer))
	assert.True(t, IsKind(outer, KindTransientNetwork))
	assert.True(t, errors.Is(outer, cause))
}

func TestError_Message(t *testing.T) {
	err := Wrap(KindRateLimited, "reply failed", errors.New("429"))
	assert.Contains(t, err.Error(), "rate_limited")
	assert.Contains(t, err.Error(), "reply failed")
	assert.Contains(t, err.Error(), "429")
}
