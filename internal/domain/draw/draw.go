package draw

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/fatih/structs"
	"github.com/mitchellh/mapstructure"
)

var ErrNoEntries = errors.New("no entries to draw")

// Entry is the part of an entry which takes part in the draw.
type Entry struct {
	Number    int
	OwnerID   string
	CreatedAt time.Time
}

type Input struct {
	RaffleID string
	ClosedAt time.Time
	Random   []byte

	// Entries must be ordered by their numbers, which are 0..len-1.
	Entries []Entry
}

// Proof contains everything needed to recompute the draw from the public
// entry list.
type Proof struct {
	Formula        string `structs:"formula" mapstructure:"formula" json:"formula"`
	RaffleID       string `structs:"raffle_id" mapstructure:"raffle_id" json:"raffle_id"`
	CloseTimestamp int64  `structs:"close_timestamp" mapstructure:"close_timestamp" json:"close_timestamp"`
	TimestampSum   string `structs:"timestamp_sum" mapstructure:"timestamp_sum" json:"timestamp_sum"`
	Random         string `structs:"random" mapstructure:"random" json:"random"`
	TotalEntries   int    `structs:"total_entries" mapstructure:"total_entries" json:"total_entries"`
	Input          string `structs:"input" mapstructure:"input" json:"input"`
	Seed           string `structs:"seed" mapstructure:"seed" json:"seed"`
	WinningIndex   int    `structs:"winning_index" mapstructure:"winning_index" json:"winning_index"`

	// Published contains the formula specific fields.
	Published map[string]string `structs:"published,omitempty" mapstructure:"published" json:"published,omitempty"`
}

func (p Proof) ToMap() map[string]any {
	return structs.Map(p)
}

func ProofFromMap(m map[string]any) (Proof, error) {
	var p Proof
	if err := mapstructure.Decode(m, &p); err != nil {
		return Proof{}, err
	}

	return p, nil
}

type Result struct {
	Proof  Proof
	Winner Entry
}

// Compute selects the winning entry:
//
//	input = raffle_id ":" close_ms ":" sum(created_at_ms) ":" hex(random)
//	index = big(formula(input)) mod len(entries)
func Compute(formula Formula, in Input) (*Result, error) {
	if len(in.Entries) == 0 {
		return nil, ErrNoEntries
	}

	for i, e := range in.Entries {
		if e.Number != i {
			return nil, fmt.Errorf("entry at position %d has number %d", i, e.Number)
		}
	}

	sum := TimestampSum(in.Entries)
	closeTimestamp := in.ClosedAt.UnixMilli()
	random := hex.EncodeToString(in.Random)
	input := DigestInput(in.RaffleID, closeTimestamp, sum, random)

	seed, published, err := formula.Seed([]byte(input))
	if err != nil {
		return nil, err
	}

	index := WinningIndex(seed, len(in.Entries))

	return &Result{
		Proof: Proof{
			Formula:        formula.Name(),
			RaffleID:       in.RaffleID,
			CloseTimestamp: closeTimestamp,
			TimestampSum:   sum,
			Random:         random,
			TotalEntries:   len(in.Entries),
			Input:          input,
			Seed:           hex.EncodeToString(seed),
			WinningIndex:   index,
			Published:      published,
		},
		Winner: in.Entries[index],
	}, nil
}

// TimestampSum returns the decimal sum of entry creation times in unix
// milliseconds.
func TimestampSum(entries []Entry) string {
	sum := new(big.Int)
	for _, e := range entries {
		sum.Add(sum, big.NewInt(e.CreatedAt.UnixMilli()))
	}

	return sum.String()
}

func DigestInput(raffleID string, closeTimestamp int64, timestampSum, random string) string {
	return fmt.Sprintf("%s:%d:%s:%s", raffleID, closeTimestamp, timestampSum, random)
}

func WinningIndex(seed []byte, total int) int {
	n := new(big.Int).SetBytes(seed)
	return int(n.Mod(n, big.NewInt(int64(total))).Int64())
}
