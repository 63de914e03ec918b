package domain

import (
	"context"
	"fmt"

	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/xcontext"
)

// Verify recomputes the draw of a completed raffle and compares it with the
// persisted result. A mismatch is reported, never corrected.
func (d *raffleDomain) Verify(ctx context.Context, req *model.VerifyRequest) (*model.VerifyResponse, error) {
	raffle, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if raffle.Status != entity.RaffleCompleted {
		return nil, errorx.New(errorx.NotReady, "Raffle is %s, only completed raffles can be verified", raffle.Status)
	}

	entries, err := d.entryRepo.GetByRaffleID(ctx, raffle.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entries: %v", err)
		return nil, errorx.Unknown
	}

	resp := &model.VerifyResponse{RaffleID: raffle.ID, RecomputedIndex: -1}
	reason := d.verify(raffle, entries, resp)
	if reason == "" {
		resp.Valid = true
		return resp, nil
	}

	resp.Valid = false
	resp.Reason = reason

	common.PromCounters[common.IntegrityViolationsTotal].WithLabelValues(common.IntegrityVerifyFailure).Inc()
	xcontext.Logger(ctx).Errorf("Integrity violation of raffle %s: %s", raffle.ID, reason)
	d.publishEvent(ctx, model.RaffleEvent{
		Event:    model.RaffleIntegrityEvent,
		RaffleID: raffle.ID,
		Status:   string(raffle.Status),
		Reason:   reason,
	})

	return resp, nil
}

// verify fills the recomputed values into resp and returns the reason of the
// first mismatch, or an empty string.
func (d *raffleDomain) verify(raffle *entity.Raffle, entries []entity.Entry, resp *model.VerifyResponse) string {
	proof, err := draw.ProofFromMap(raffle.DrawProof)
	if err != nil {
		return fmt.Sprintf("cannot decode proof: %v", err)
	}

	result := draw.VerifyWith(d.formula, proof, toDrawEntries(entries))
	resp.RecomputedIndex = result.WinningIndex
	resp.RecomputedWinner = result.Winner.OwnerID
	if !result.Valid {
		return result.Reason
	}

	if proof.RaffleID != raffle.ID {
		return "proof belongs to another raffle"
	}

	if proof.Formula != raffle.DrawFormula {
		return "persisted formula differs from the proof"
	}

	if proof.Random != raffle.DrawRandom {
		return "persisted random differs from the proof"
	}

	if !raffle.ClosedAt.Valid || proof.CloseTimestamp != raffle.ClosedAt.Time.UnixMilli() {
		return "persisted close time differs from the proof"
	}

	if proof.Seed != raffle.DrawSeed {
		return "persisted seed differs from the proof"
	}

	if !raffle.WinningEntryNumber.Valid || int(raffle.WinningEntryNumber.Int64) != result.Winner.Number {
		return fmt.Sprintf("persisted winning entry differs from recomputed entry %d", result.Winner.Number)
	}

	if raffle.WinnerID != result.Winner.OwnerID {
		return fmt.Sprintf("persisted winner differs from recomputed winner %s", result.Winner.OwnerID)
	}

	if raffle.TotalEntriesAtDraw != len(entries) {
		return fmt.Sprintf("raffle was drawn with %d entries but has %d", raffle.TotalEntriesAtDraw, len(entries))
	}

	winning := 0
	for _, e := range entries {
		if !e.IsWinning {
			continue
		}

		winning++
		if e.EntryNumber != result.Winner.Number {
			return fmt.Sprintf("entry %d is flagged as winning", e.EntryNumber)
		}
	}

	if winning != 1 {
		return fmt.Sprintf("found %d winning entries", winning)
	}

	return ""
}
