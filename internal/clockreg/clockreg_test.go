package clockreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstAcceptHasZeroPrior(t *testing.T) {
	r := New()
	prior, ok := r.Accept("VIC01", 1)
	assert.True(t, ok)
	assert.Equal(t, int64(0), prior)
}

func TestStrictMonotonic(t *testing.T) {
	r := New()
	_, _ = r.Accept("VIC01", 2)

	_, ok := r.Accept("VIC01", 2)
	assert.False(t, ok, "equal clock must be rejected")

	_, ok = r.Accept("VIC01", 1)
	assert.False(t, ok, "lower clock must be rejected")

	_, ok = r.Accept("VIC01", 3)
	assert.True(t, ok)
}

func TestPeersAreIndependent(t *testing.T) {
	r := New()
	_, _ = r.Accept("A", 5)

	_, ok := r.Accept("B", 1)
	assert.True(t, ok, "a different peer's clock is independent")
}

func TestForgetResetsToFirstContact(t *testing.T) {
	r := New()
	_, _ = r.Accept("WA02", 1)

	r.Forget("WA02")

	prior, ok := r.Accept("WA02", 1)
	assert.True(t, ok)
	assert.Equal(t, int64(0), prior)
}

func TestClearRemovesAllPeers(t *testing.T) {
	r := New()
	_, _ = r.Accept("A", 1)
	_, _ = r.Accept("B", 1)
	r.Clear()
	assert.Equal(t, 0, r.Len())
}
