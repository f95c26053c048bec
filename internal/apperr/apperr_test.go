package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedError(t *testing.T) {
	base := New(KindOrderClosed, "order %s is closed", "abc")
	wrapped := fmt.Errorf("set status: %w", base)

	assert.Equal(t, KindOrderClosed, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindOrderClosed))
	assert.False(t, Is(wrapped, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(KindNotFound, nil, "missing"))
}

func TestWithDetailsCopies(t *testing.T) {
	base := New(KindInsufficientStock, "insufficient stock")
	withDetails := base.WithDetails([]string{"flour"})

	require.NotSame(t, base, withDetails)
	assert.Nil(t, base.Details)
	assert.Equal(t, []string{"flour"}, withDetails.Details)
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindInternal, errors.New("connection reset"), "load order")
	assert.Equal(t, "load order: connection reset", err.Error())
	assert.Equal(t, "insufficient_stock", KindInsufficientStock.String())
}
