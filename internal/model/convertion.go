package model

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/rafflehub/backend/internal/entity"
)

const DefaultTimeLayout string = time.RFC3339Nano

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}

	return t.Time.Format(DefaultTimeLayout)
}

func ConvertRaffle(raffle *entity.Raffle) Raffle {
	if raffle == nil {
		return Raffle{}
	}

	var winningEntryNumber *int
	if raffle.WinningEntryNumber.Valid {
		n := int(raffle.WinningEntryNumber.Int64)
		winningEntryNumber = &n
	}

	return Raffle{
		ID:                 raffle.ID,
		Title:              raffle.Title,
		TotalEntries:       raffle.TotalEntries,
		SoldEntries:        raffle.SoldEntries,
		PricePerEntry:      raffle.PricePerEntry.String(),
		MaxEntriesPerUser:  raffle.MaxEntriesPerUser,
		Status:             string(raffle.Status),
		Deadline:           formatNullTime(raffle.Deadline),
		ClosedAt:           formatNullTime(raffle.ClosedAt),
		CloseReason:        string(raffle.CloseReason),
		DrawAt:             formatNullTime(raffle.DrawAt),
		CompletedAt:        formatNullTime(raffle.CompletedAt),
		WinningEntryNumber: winningEntryNumber,
		WinnerID:           raffle.WinnerID,
		CreatedBy:          raffle.CreatedBy,
		CreatedAt:          raffle.CreatedAt.Format(DefaultTimeLayout),
	}
}

func ConvertEntry(entry *entity.Entry) Entry {
	if entry == nil {
		return Entry{}
	}

	return Entry{
		EntryNumber: entry.EntryNumber,
		OwnerID:     entry.OwnerID,
		CreatedAt:   entry.CreatedAt.UTC().Format(DefaultTimeLayout),
		CreatedAtMs: entry.CreatedAt.UnixMilli(),
		IsWinning:   entry.IsWinning,
	}
}

// ConvertDrawResult returns the result of a raffle in terminal status.
func ConvertDrawResult(raffle *entity.Raffle, alreadyDrawn bool) DrawResult {
	if raffle == nil {
		return DrawResult{}
	}

	var winningEntryNumber *int
	if raffle.WinningEntryNumber.Valid {
		n := int(raffle.WinningEntryNumber.Int64)
		winningEntryNumber = &n
	}

	return DrawResult{
		RaffleID:           raffle.ID,
		Status:             string(raffle.Status),
		AlreadyDrawn:       alreadyDrawn,
		WinningEntryNumber: winningEntryNumber,
		WinnerID:           raffle.WinnerID,
		TotalEntries:       raffle.TotalEntriesAtDraw,
		Formula:            raffle.DrawFormula,
		Seed:               raffle.DrawSeed,
		Proof:              raffle.DrawProof,
	}
}

func ConvertWalletTransaction(tx *entity.WalletTransaction) WalletTransaction {
	if tx == nil {
		return WalletTransaction{}
	}

	return WalletTransaction{
		ID:        strconv.FormatInt(tx.ID, 10),
		RaffleID:  tx.RaffleID,
		Amount:    tx.Amount.String(),
		Reason:    string(tx.Reason),
		CreatedAt: tx.CreatedAt.Format(DefaultTimeLayout),
	}
}
