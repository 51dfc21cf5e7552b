package local

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters, tuned for an interactive client.
const (
	hashIters   uint32 = 2
	hashMemory  uint32 = 48 * 1024 // KiB
	hashThreads uint8  = 1
	hashKeyLen  uint32 = 32
	saltLen            = 16
)

func randSalt() ([]byte, error) {
	b := make([]byte, saltLen)
	_, err := rand.Read(b)
	return b, err
}

func hashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, hashIters, hashMemory, hashThreads, hashKeyLen)
}

func verifyPassword(password, salt, expected []byte) bool {
	got := hashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}
