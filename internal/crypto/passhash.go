// Package crypto implements password hashing for the in-process mock backend.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, kept small: hashes only live in process memory.
const (
	argonTime    uint32 = 1
	argonMemory  uint32 = 8 * 1024
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	saltLen             = 16
)

// PasswordHash is a salted Argon2id digest.
type PasswordHash struct {
	Salt []byte
	Sum  []byte
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword hashes password under a fresh random salt.
func HashPassword(password string) (PasswordHash, error) {
	salt, err := RandBytes(saltLen)
	if err != nil {
		return PasswordHash{}, err
	}
	return PasswordHash{Salt: salt, Sum: sum(password, salt)}, nil
}

// Verify reports whether password matches h in constant time.
func (h PasswordHash) Verify(password string) bool {
	if len(h.Sum) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(sum(password, h.Salt), h.Sum) == 1
}

func sum(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
