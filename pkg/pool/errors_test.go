package pool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")

	withCause := newError(KindFactory, "db", "boom", cause)
	assert.Equal(t, `pool "db": [factory] boom: connection refused`, withCause.Error())

	withoutCause := newError(KindDuplicateValue, "db", "resource is already buffered", nil)
	assert.Equal(t, `pool "db": [duplicate_value] resource is already buffered`, withoutCause.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	ferr := newError(KindFactory, "db", "attempt failed", cause)
	rerr := newError(KindRetryLimitExceeded, "db", "gave up", ferr)

	assert.ErrorIs(t, rerr, ferr)
	assert.ErrorIs(t, rerr, cause)

	var e *Error
	require.ErrorAs(t, rerr, &e)
	assert.Equal(t, KindRetryLimitExceeded, e.Kind)
	assert.Equal(t, "db", e.Pool)
}

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		kind Kind
	}{
		{"factory", newError(KindFactory, "p", "m", nil), IsFactoryError, KindFactory},
		{"retry limit", newError(KindRetryLimitExceeded, "p", "m", nil), IsRetryLimitExceeded, KindRetryLimitExceeded},
		{"duplicate", newError(KindDuplicateValue, "p", "m", nil), IsDuplicateValue, KindDuplicateValue},
		{"destructor", newError(KindDestructor, "p", "m", nil), IsDestructorError, KindDestructor},
		{"callback", newError(KindCallback, "p", "m", nil), IsCallbackError, KindCallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.True(t, IsKind(tt.err, tt.kind))

			// Every other predicate rejects it.
			for _, other := range tests {
				if other.kind == tt.kind {
					continue
				}
				assert.False(t, other.pred(tt.err), "%s predicate matched %s error", other.name, tt.name)
			}
		})
	}
}

func TestKindPredicatesRejectForeignErrors(t *testing.T) {
	assert.False(t, IsFactoryError(nil))
	assert.False(t, IsDuplicateValue(errors.New("plain")))
	assert.False(t, IsKind(fmt.Errorf("wrapped: %w", errors.New("plain")), KindFactory))
}

func TestKindPredicatesSeeThroughWrapping(t *testing.T) {
	inner := newError(KindDuplicateValue, "db", "resource is already buffered", nil)
	wrapped := fmt.Errorf("put failed: %w", inner)

	assert.True(t, IsDuplicateValue(wrapped))
	assert.False(t, IsFactoryError(wrapped))
}
