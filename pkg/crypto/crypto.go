package crypto

import (
	"crypto/rand"
	"crypto/sha256"
)

// RandomBytes returns n bytes read from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return b, nil
}

func SHA256(b []byte) []byte {
	hashed := sha256.Sum256(b)
	return hashed[:]
}
