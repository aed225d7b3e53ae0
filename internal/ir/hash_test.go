package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomainSeparator(t *testing.T) {
	// "foo" + 0x00 + "bar" must differ from "foob" + 0x00 + "ar"
	assert.NotEqual(t, hashWithDomain("foo", []byte("bar")), hashWithDomain("foob", []byte("ar")))
}

func TestFingerprintChangesWithInput(t *testing.T) {
	base := Object{"limit": Object{"start": Int(0), "end": Int(10)}}
	changed := Object{"limit": Object{"start": Int(0), "end": Int(11)}}

	a, err := Fingerprint(DomainQuerySpec, base)
	require.NoError(t, err)
	b, err := Fingerprint(DomainQuerySpec, changed)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFingerprintIntegralFloat(t *testing.T) {
	// Canonical JSON renders Float(1) as "1", so integral floats share the
	// fingerprint of the matching Int.
	a, err := Fingerprint(DomainQuerySpec, Object{"v": Int(1)})
	require.NoError(t, err)
	b, err := Fingerprint(DomainQuerySpec, Object{"v": Float(1)})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Fingerprint(DomainQuerySpec, Object{"v": Float(1.5)})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprintRejectsNonFinite(t *testing.T) {
	_, err := Fingerprint(DomainQuerySpec, Array{Float(0), Float(math.Inf(1))})
	require.Error(t, err)
}
