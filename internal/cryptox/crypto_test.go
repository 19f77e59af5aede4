package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1 := DeriveKey([]byte("secret"), []byte("salt"))
	key2 := DeriveKey([]byte("secret"), []byte("salt"))

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 32)
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	key1 := DeriveKey([]byte("secret"), []byte("salt-1"))
	key2 := DeriveKey([]byte("secret"), []byte("salt-2"))

	assert.NotEqual(t, key1, key2)
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))
	plaintext := []byte(`{"alice":{"password":"$2a$..."}}`)

	sealed, err := Seal(plaintext, key)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, plaintext), "sealed output must not embed the plaintext")

	opened, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	sealed, err := Seal([]byte("data"), DeriveKey([]byte("a"), []byte("s")))
	require.NoError(t, err)

	_, err = Open(sealed, DeriveKey([]byte("b"), []byte("s")))
	assert.Error(t, err)
}

func TestSeal_FreshNoncePerCall(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))

	one, err := Seal([]byte("data"), key)
	require.NoError(t, err)
	two, err := Seal([]byte("data"), key)
	require.NoError(t, err)

	assert.NotEqual(t, one, two)
}
