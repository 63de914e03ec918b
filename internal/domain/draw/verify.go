package draw

import (
	"encoding/hex"
	"fmt"
)

type Verification struct {
	Valid        bool
	WinningIndex int
	Winner       Entry
	Reason       string
}

func invalid(format string, args ...any) Verification {
	return Verification{Valid: false, WinningIndex: -1, Reason: fmt.Sprintf(format, args...)}
}

// Verify recomputes the draw from the proof and the entry list. It only uses
// public data, the proof is never trusted beyond the values it publishes.
func Verify(proof Proof, entries []Entry) Verification {
	return VerifyWith(nil, proof, entries)
}

// VerifyWith is Verify which checks the proof with the trusted formula when
// the proof was made by a formula of the same name. A trusted BLS formula
// rejects proofs signed by another key.
func VerifyWith(trusted Formula, proof Proof, entries []Entry) Verification {
	formula := trusted
	if formula == nil || formula.Name() != proof.Formula {
		var err error
		formula, err = New(proof.Formula, "")
		if err != nil {
			return invalid("unknown formula %q", proof.Formula)
		}
	}

	if len(entries) == 0 {
		return invalid("no entries")
	}

	if proof.TotalEntries != len(entries) {
		return invalid("proof has %d entries but found %d", proof.TotalEntries, len(entries))
	}

	for i, e := range entries {
		if e.Number != i {
			return invalid("entry at position %d has number %d", i, e.Number)
		}
	}

	sum := TimestampSum(entries)
	if sum != proof.TimestampSum {
		return invalid("timestamp sum mismatch: recomputed %s, published %s", sum, proof.TimestampSum)
	}

	input := DigestInput(proof.RaffleID, proof.CloseTimestamp, sum, proof.Random)
	if input != proof.Input {
		return invalid("digest input mismatch")
	}

	seed, err := formula.Check([]byte(input), proof.Published)
	if err != nil {
		return invalid("formula check failed: %v", err)
	}

	if hex.EncodeToString(seed) != proof.Seed {
		return invalid("seed mismatch")
	}

	index := WinningIndex(seed, len(entries))
	result := Verification{
		Valid:        true,
		WinningIndex: index,
		Winner:       entries[index],
	}

	if index != proof.WinningIndex {
		result.Valid = false
		result.Reason = fmt.Sprintf("winning index mismatch: recomputed %d, published %d", index, proof.WinningIndex)
	}

	return result
}
