package hash

import (
	"crypto/sha1"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
)

func TestHashDefaults(t *testing.T) {
	salt := []byte("01234567890123456789")
	b, err := Hash([]byte("passwd"), WithSalt(salt))
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, pbkdf2.Key([]byte("passwd"), salt, 75000, 32, sha1.New), b)
}

func TestHashOptions(t *testing.T) {
	salt := []byte("salt")
	b, err := Hash([]byte("passwd"),
		WithSalt(salt),
		WithSHA512(true),
		WithIterations(10),
		WithKeyLength(64),
	)
	require.NoError(t, err)
	assert.Equal(t, pbkdf2.Key([]byte("passwd"), salt, 10, 64, sha512.New), b)
}

func TestHashZeroOptionsKeepDefaults(t *testing.T) {
	salt := []byte("salt")
	b, err := Hash([]byte("passwd"),
		WithSalt(salt),
		WithSHA512(false),
		WithIterations(0),
		WithKeyLength(0),
	)
	require.NoError(t, err)
	assert.Equal(t, pbkdf2.Key([]byte("passwd"), salt, 75000, 32, sha1.New), b)
}

func TestHashNoSalt(t *testing.T) {
	_, err := Hash([]byte("passwd"))
	assert.Equal(t, ErrNoSalt, err)

	_, err = Hash([]byte("passwd"), WithSalt([]byte{}))
	assert.Equal(t, ErrNoSalt, err)
}
