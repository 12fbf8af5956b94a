package units

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chaintrack/chaintrack/internal/fault"
)

func TestUniqueIDs(t *testing.T) {
	assert.NoError(t, uniqueIDs(nil))
	assert.NoError(t, uniqueIDs([]string{"u1"}))
	assert.NoError(t, uniqueIDs([]string{"u1", "u2", "u3"}))

	err := uniqueIDs([]string{"u1", "u1"})
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	err = uniqueIDs([]string{"u1", "u2", "u1"})
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}
