package draw

import (
	"fmt"
)

const (
	SHA256TimestampSum = "sha256-timestamp-sum"
	BLSBN256           = "bls-bn256"
)

// Formula derives the seed of a draw from its digest input. Every formula
// must be deterministic: the same input always gives the same seed.
type Formula interface {
	Name() string

	// Seed returns the seed and the formula specific fields which are
	// published in the proof.
	Seed(input []byte) ([]byte, map[string]string, error)

	// Check recomputes the seed from the input and the published fields, it
	// returns an error if the published fields are not valid for the input.
	Check(input []byte, published map[string]string) ([]byte, error)
}

// New returns the formula by its name. The secret key is only used by
// formulas that sign the input, a formula created without it can still
// check proofs.
func New(name, secretKey string) (Formula, error) {
	switch name {
	case "", SHA256TimestampSum:
		return sha256Formula{}, nil
	case BLSBN256:
		f, err := NewBLSFormula(secretKey)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	return nil, fmt.Errorf("unknown seed formula %q", name)
}
