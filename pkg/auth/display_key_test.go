package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayKeyVerifier(t *testing.T) {
	lobbyHash, err := HashDisplayKey("lobby-screen-key")
	require.NoError(t, err)
	nocHash, err := HashDisplayKey("noc-screen-key")
	require.NoError(t, err)

	verifier := NewDisplayKeyVerifier([]DisplayKey{
		{TenantID: "tenant-1", Hash: lobbyHash},
		{TenantID: "tenant-2", Hash: nocHash},
	})
	assert.True(t, verifier.HasKeys())

	tenant, ok := verifier.Lookup("lobby-screen-key")
	assert.True(t, ok)
	assert.Equal(t, "tenant-1", tenant)

	tenant, ok = verifier.Lookup("noc-screen-key")
	assert.True(t, ok)
	assert.Equal(t, "tenant-2", tenant)

	_, ok = verifier.Lookup("wrong-key")
	assert.False(t, ok)
	_, ok = verifier.Lookup("")
	assert.False(t, ok)
}

func TestDisplayKeyVerifierEmpty(t *testing.T) {
	var nilVerifier *DisplayKeyVerifier
	assert.False(t, nilVerifier.HasKeys())
	_, ok := nilVerifier.Lookup("anything")
	assert.False(t, ok)

	empty := NewDisplayKeyVerifier(nil)
	assert.False(t, empty.HasKeys())
	_, ok = empty.Lookup("anything")
	assert.False(t, ok)
}

func TestHashDisplayKeyRejectsEmpty(t *testing.T) {
	_, err := HashDisplayKey("")
	assert.Error(t, err)
}
