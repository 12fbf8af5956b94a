package fault

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKindMatchesWrappedErrors(t *testing.T) {
	err := NotFound("order", "o1")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindValidation))

	wrapped := fmt.Errorf("loading order: %w", err)
	assert.True(t, IsKind(wrapped, KindNotFound))
}

func TestIsKindNilAndForeign(t *testing.T) {
	assert.False(t, IsKind(nil, KindNotFound))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindNotFound))
}

func TestPreconditionCarriesStates(t *testing.T) {
	err := Precondition("order", "o1", "CONFIRMED", "DELIVERED")
	var e *Error
	assert.ErrorAs(t, err, &e)
	assert.Equal(t, "CONFIRMED", e.Expected)
	assert.Equal(t, "DELIVERED", e.Actual)
	assert.Contains(t, err.Error(), "CONFIRMED")
	assert.Contains(t, err.Error(), "DELIVERED")
}

func TestInsufficientStockMessage(t *testing.T) {
	err := InsufficientStock("bulk_stock", "p1", 5, 2)
	assert.True(t, IsKind(err, KindInsufficientStock))
	assert.Contains(t, err.Error(), "5")
	assert.Contains(t, err.Error(), "2")
}
