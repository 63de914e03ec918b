package draw

import (
	"github.com/rafflehub/backend/pkg/crypto"
)

// sha256Formula uses the SHA-256 digest of the input as the seed.
type sha256Formula struct{}

func (sha256Formula) Name() string {
	return SHA256TimestampSum
}

func (sha256Formula) Seed(input []byte) ([]byte, map[string]string, error) {
	return crypto.SHA256(input), nil, nil
}

func (sha256Formula) Check(input []byte, _ map[string]string) ([]byte, error) {
	return crypto.SHA256(input), nil
}
