package entity

import (
	"database/sql"

	"github.com/rafflehub/backend/pkg/enum"
	"github.com/shopspring/decimal"
)

type RaffleStatus string

var (
	RaffleOpen      = enum.New(RaffleStatus("open"))
	RaffleClosing   = enum.New(RaffleStatus("closing"))
	RaffleDrawing   = enum.New(RaffleStatus("drawing"))
	RaffleCompleted = enum.New(RaffleStatus("completed"))
	RaffleCancelled = enum.New(RaffleStatus("cancelled"))
)

// IsTerminal returns true if no more transition can happen from this status.
func (s RaffleStatus) IsTerminal() bool {
	return s == RaffleCompleted || s == RaffleCancelled
}

type CloseReason string

var (
	CloseBySoldOut  = enum.New(CloseReason("sold_out"))
	CloseByDeadline = enum.New(CloseReason("deadline"))
	CloseByOperator = enum.New(CloseReason("operator"))
)

type Raffle struct {
	Base

	Title             string
	TotalEntries      int
	SoldEntries       int
	PricePerEntry     decimal.Decimal `gorm:"type:decimal(20,8)"`
	MaxEntriesPerUser int
	Status            RaffleStatus `gorm:"index"`
	Deadline          sql.NullTime

	CreatedBy string
	Creator   User `gorm:"foreignKey:CreatedBy"`

	ClosedAt    sql.NullTime `gorm:"precision:3"`
	CloseReason CloseReason

	// DrawAt is the earliest time the draw can be requested.
	DrawAt sql.NullTime

	// DrawAttempt identifies the current holder of the drawing status. Every
	// transition out of drawing is conditional on it.
	DrawAttempt string
	DrawingAt   sql.NullTime

	// DrawRandom is persisted once per raffle, retries of the draw reuse it.
	DrawRandom         string
	DrawFormula        string
	DrawSeed           string
	DrawProof          Map
	WinningEntryNumber sql.NullInt64
	WinnerID           string
	TotalEntriesAtDraw int
	CompletedAt        sql.NullTime
}

func (r *Raffle) IsSoldOut() bool {
	return r.SoldEntries >= r.TotalEntries
}
