package hash

import (
	"crypto/sha1"
	"crypto/sha512"
	"errors"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

// ErrNoSalt is returned by Hash when no salt was configured.
var ErrNoSalt = errors.New("hash: salt is required")

// Option is a Hash configuration option.
type Option func(s *settings)

// WithIterations sets the iterations count.
func WithIterations(iter int) Option {
	return func(s *settings) {
		if iter != 0 {
			s.iter = iter
		}
	}
}

// WithKeyLength sets the generated key length in bytes.
func WithKeyLength(length int) Option {
	return func(s *settings) {
		if length != 0 {
			s.keyLen = length
		}
	}
}

// WithSHA512 uses SHA512 hashing function instead of the default SHA1.
func WithSHA512(enabled bool) Option {
	return func(s *settings) {
		if enabled {
			s.h = sha512.New
		}
	}
}

// WithSalt sets the PBKDF2 salt, it must not be empty.
func WithSalt(salt []byte) Option {
	return func(s *settings) {
		s.salt = salt
	}
}

type settings struct {
	iter   int
	keyLen int
	salt   []byte
	h      func() hash.Hash
}

// Hash derives a key from a passphrase with PBKDF2.
//
// Defaults are 75000 iterations of HMAC-SHA1 producing a 32 byte key,
// the parameters sedutil uses for drive passwords.
func Hash(passwd []byte, opts ...Option) ([]byte, error) {
	s := &settings{
		iter:   75000,
		keyLen: 32,
		h:      sha1.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.salt) == 0 {
		return nil, ErrNoSalt
	}
	return pbkdf2.Key(passwd, s.salt, s.iter, s.keyLen, s.h), nil
}
