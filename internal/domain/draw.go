package domain

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/crypto"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/xcontext"
	"gorm.io/gorm"
)

const drawRandomSize = 32

var errLostDrawAttempt = errors.New("draw attempt is not the holder of the raffle anymore")

func (d *raffleDomain) RequestDraw(
	ctx context.Context, req *model.RequestDrawRequest,
) (*model.RequestDrawResponse, error) {
	if req.RaffleID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty raffle id")
	}

	var cached model.DrawResult
	err := d.redisClient.GetObj(ctx, common.RedisKeyRaffleResult(req.RaffleID), &cached)
	if err == nil {
		cached.AlreadyDrawn = true
		return &model.RequestDrawResponse{Result: cached}, nil
	}

	result, err := d.requestDraw(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	return &model.RequestDrawResponse{Result: *result}, nil
}

func (d *raffleDomain) requestDraw(ctx context.Context, raffleID string) (*model.DrawResult, error) {
	raffle, err := d.getRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	now := common.Now()
	if err := checkDrawable(raffle, now); err != nil {
		if raffle.Status.IsTerminal() {
			return d.existingResult(ctx, raffle), nil
		}

		return nil, err
	}

	attempt := uuid.NewString()
	if err := d.raffleRepo.StartDrawing(ctx, raffle.ID, attempt, now); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot start drawing: %v", err)
			return nil, errorx.Unknown
		}

		// Another caller changed the raffle between our read and the update.
		raffle, err := d.getRaffle(ctx, raffleID)
		if err != nil {
			return nil, err
		}

		if raffle.Status.IsTerminal() {
			return d.existingResult(ctx, raffle), nil
		}

		if err := checkDrawable(raffle, common.Now()); err != nil {
			return nil, err
		}

		return nil, errorx.New(errorx.AlreadyDrawn, "Raffle is being drawn by another request")
	}

	start := time.Now()
	drawn, err := d.executeDraw(ctx, raffle.ID, attempt)
	if err != nil {
		common.PromCounters[common.RaffleDrawsTotal].WithLabelValues("failed").Inc()
		xcontext.Logger(ctx).Errorf("Cannot draw raffle %s: %v", raffle.ID, err)

		// The request may be cancelled already, the rollback must still run.
		rollbackCtx := context.WithoutCancel(ctx)
		if err := d.raffleRepo.RollbackDrawing(rollbackCtx, raffle.ID, attempt); err != nil &&
			!errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot rollback drawing of raffle %s: %v", raffle.ID, err)
		}

		return nil, errorx.Unknown
	}

	common.PromHistograms[common.RaffleDrawDurationSeconds].
		WithLabelValues(d.formula.Name()).Observe(time.Since(start).Seconds())
	common.PromCounters[common.RaffleDrawsTotal].WithLabelValues(string(drawn.Status)).Inc()

	result := model.ConvertDrawResult(drawn, false)
	d.cacheResult(ctx, result)

	event := model.RaffleEvent{
		Event:              model.RaffleCompletedEvent,
		RaffleID:           drawn.ID,
		Status:             string(drawn.Status),
		WinningEntryNumber: result.WinningEntryNumber,
		WinnerID:           drawn.WinnerID,
	}
	if drawn.Status == entity.RaffleCancelled {
		event.Event = model.RaffleCancelledEvent
		event.Reason = "no entries"
	}
	d.publishEvent(ctx, event)

	return &result, nil
}

// checkDrawable returns the error of a draw request on a raffle which cannot
// move to drawing now.
func checkDrawable(raffle *entity.Raffle, now time.Time) error {
	switch raffle.Status {
	case entity.RaffleCompleted, entity.RaffleCancelled:
		return errorx.New(errorx.AlreadyDrawn, "Raffle is already %s", raffle.Status)
	case entity.RaffleOpen:
		return errorx.New(errorx.NotReady, "Raffle is still open")
	case entity.RaffleDrawing:
		return errorx.New(errorx.DrawInProgress, "Raffle is being drawn")
	}

	if raffle.DrawAt.Valid && raffle.DrawAt.Time.After(now) {
		return errorx.New(errorx.NotReady, "Draw is available after %s",
			raffle.DrawAt.Time.Format(model.DefaultTimeLayout))
	}

	return nil
}

func (d *raffleDomain) existingResult(ctx context.Context, raffle *entity.Raffle) *model.DrawResult {
	result := model.ConvertDrawResult(raffle, true)
	d.cacheResult(ctx, result)
	return &result
}

func (d *raffleDomain) cacheResult(ctx context.Context, result model.DrawResult) {
	ttl := xcontext.Configs(ctx).Redis.ResultTTL
	key := common.RedisKeyRaffleResult(result.RaffleID)
	if err := d.redisClient.SetObj(ctx, key, result, ttl); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache result of raffle %s: %v", result.RaffleID, err)
	}
}

// executeDraw selects the winner of a raffle held by the attempt. It returns
// the raffle in its terminal status.
func (d *raffleDomain) executeDraw(ctx context.Context, raffleID, attempt string) (*entity.Raffle, error) {
	random, err := crypto.RandomBytes(drawRandomSize)
	if err != nil {
		return nil, err
	}

	if err := d.raffleRepo.SetDrawRandom(ctx, raffleID, hex.EncodeToString(random)); err != nil {
		return nil, err
	}

	raffle, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if raffle.Status != entity.RaffleDrawing || raffle.DrawAttempt != attempt {
		return nil, errLostDrawAttempt
	}

	// A previous attempt may have stored its random already.
	random, err = hex.DecodeString(raffle.DrawRandom)
	if err != nil {
		return nil, err
	}

	txCtx := xcontext.WithDBTransaction(ctx)
	defer xcontext.RollbackDBTransaction(txCtx)

	entries, err := d.entryRepo.GetByRaffleID(txCtx, raffle.ID)
	if err != nil {
		return nil, err
	}

	now := common.Now()
	if len(entries) == 0 {
		if err := d.raffleRepo.CancelDrawing(txCtx, raffle.ID, attempt, now); err != nil {
			return nil, err
		}
	} else {
		result, err := draw.Compute(d.formula, draw.Input{
			RaffleID: raffle.ID,
			ClosedAt: raffle.ClosedAt.Time,
			Random:   random,
			Entries:  toDrawEntries(entries),
		})
		if err != nil {
			return nil, err
		}

		if err := d.entryRepo.SetWinning(txCtx, raffle.ID, result.Winner.Number); err != nil {
			return nil, err
		}

		err = d.raffleRepo.CompleteDrawing(txCtx, raffle.ID, attempt, now, repository.CompleteDrawData{
			Formula:            result.Proof.Formula,
			Seed:               result.Proof.Seed,
			Proof:              result.Proof.ToMap(),
			WinningEntryNumber: result.Winner.Number,
			WinnerID:           result.Winner.OwnerID,
			TotalEntriesAtDraw: result.Proof.TotalEntries,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := xcontext.CommitDBTransaction(txCtx); err != nil {
		return nil, err
	}

	return d.raffleRepo.GetByID(ctx, raffle.ID)
}

func toDrawEntries(entries []entity.Entry) []draw.Entry {
	result := make([]draw.Entry, 0, len(entries))
	for _, e := range entries {
		result = append(result, draw.Entry{
			Number:    e.EntryNumber,
			OwnerID:   e.OwnerID,
			CreatedAt: e.CreatedAt,
		})
	}

	return result
}

// DrawPending requests the draw of every closing raffle whose countdown has
// elapsed. It returns the number of raffles drawn by this call.
func (d *raffleDomain) DrawPending(ctx context.Context) (int, error) {
	raffles, err := d.raffleRepo.GetPendingDraw(ctx, common.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, raffle := range raffles {
		result, err := d.requestDraw(ctx, raffle.ID)
		if err != nil {
			if errorx.Is(err, errorx.NotReady) ||
				errorx.Is(err, errorx.AlreadyDrawn) ||
				errorx.Is(err, errorx.DrawInProgress) {
				continue
			}

			xcontext.Logger(ctx).Errorf("Cannot draw pending raffle %s: %v", raffle.ID, err)
			continue
		}

		if !result.AlreadyDrawn {
			count++
		}
	}

	return count, nil
}

// RecoverStuckDrawing gives back to closing every raffle which stays in
// drawing longer than the drawing timeout.
func (d *raffleDomain) RecoverStuckDrawing(ctx context.Context) (int, error) {
	cutoff := common.Now().Add(-xcontext.Configs(ctx).Raffle.DrawingTimeout)
	raffles, err := d.raffleRepo.GetStuckDrawing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, raffle := range raffles {
		err := d.raffleRepo.RollbackDrawing(ctx, raffle.ID, raffle.DrawAttempt)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				xcontext.Logger(ctx).Errorf("Cannot rollback stuck raffle %s: %v", raffle.ID, err)
			}

			continue
		}

		count++
		common.PromCounters[common.IntegrityViolationsTotal].WithLabelValues(common.IntegrityStuckDrawing).Inc()
		xcontext.Logger(ctx).Errorf("Raffle %s was stuck in drawing since %s, rolled back to closing",
			raffle.ID, raffle.DrawingAt.Time.Format(model.DefaultTimeLayout))
		d.publishEvent(ctx, model.RaffleEvent{
			Event:    model.RaffleIntegrityEvent,
			RaffleID: raffle.ID,
			Status:   string(entity.RaffleClosing),
			Reason:   common.IntegrityStuckDrawing,
		})
	}

	return count, nil
}
