package authenticity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrack/chaintrack/internal/units"
)

type memSource struct {
	bySerial map[string][]units.Unit
}

func (m *memSource) FindBySerial(_ context.Context, serial string) ([]units.Unit, error) {
	return m.bySerial[serial], nil
}

func newVerifier(t *testing.T, src UnitSource) *Verifier {
	t.Helper()
	v, err := New("test-secret", src)
	require.NoError(t, err)
	return v
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("", nil)
	assert.Error(t, err)
}

func TestDeriveHashDeterministic(t *testing.T) {
	v := newVerifier(t, nil)

	a := v.DeriveHash("SN-001", "mfr-1")
	b := v.DeriveHash("SN-001", "mfr-1")
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)

	// any input change changes the token
	assert.NotEqual(t, a, v.DeriveHash("SN-002", "mfr-1"))
	assert.NotEqual(t, a, v.DeriveHash("SN-001", "mfr-2"))

	// concatenation boundary matters: ("ab","c") != ("a","bc")
	assert.NotEqual(t, v.DeriveHash("ab", "c"), v.DeriveHash("a", "bc"))
}

func TestDeriveHashDependsOnSecret(t *testing.T) {
	v1 := newVerifier(t, nil)
	v2, err := New("other-secret", nil)
	require.NoError(t, err)
	assert.NotEqual(t, v1.DeriveHash("SN-001", "mfr-1"), v2.DeriveHash("SN-001", "mfr-1"))
}

func TestVerify(t *testing.T) {
	src := &memSource{bySerial: map[string][]units.Unit{}}
	v := newVerifier(t, src)

	token := v.DeriveHash("SN-001", "mfr-1")
	src.bySerial["SN-001"] = []units.Unit{{
		ID: "u1", ProductID: "p1", SerialNumber: "SN-001",
		ManufacturerID: "mfr-1", Status: units.StatusSoldToBuyer, AuthHash: token,
	}}

	res, err := v.Verify(context.Background(), "SN-001", token)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Unit)
	assert.Equal(t, "p1", res.Unit.ProductID)
	assert.Equal(t, "mfr-1", res.Unit.ManufacturerID)

	// wrong token is a normal negative outcome, not an error
	res, err = v.Verify(context.Background(), "SN-001", "wrong-token")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Unit)

	// unknown serial
	res, err = v.Verify(context.Background(), "unknown-serial", token)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	// empty inputs
	res, err = v.Verify(context.Background(), "", token)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	res, err = v.Verify(context.Background(), "SN-001", "")
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestVerifySkipsUnitsWithoutToken(t *testing.T) {
	src := &memSource{bySerial: map[string][]units.Unit{
		"SN-X": {{ID: "u1", ProductID: "p1", SerialNumber: "SN-X", AuthHash: ""}},
	}}
	v := newVerifier(t, src)

	res, err := v.Verify(context.Background(), "SN-X", "")
	assert.NoError(t, err)
	assert.False(t, res.Valid)
}

// Serials are unique per product only; verification must pick the candidate
// whose token actually matches.
func TestVerifyAcrossProductsSharingSerial(t *testing.T) {
	src := &memSource{bySerial: map[string][]units.Unit{}}
	v := newVerifier(t, src)

	t1 := v.DeriveHash("SN-7", "mfr-1")
	t2 := v.DeriveHash("SN-7", "mfr-2")
	src.bySerial["SN-7"] = []units.Unit{
		{ID: "u1", ProductID: "p1", SerialNumber: "SN-7", ManufacturerID: "mfr-1", AuthHash: t1},
		{ID: "u2", ProductID: "p2", SerialNumber: "SN-7", ManufacturerID: "mfr-2", AuthHash: t2},
	}

	res, err := v.Verify(context.Background(), "SN-7", t2)
	assert.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "p2", res.Unit.ProductID)
}
