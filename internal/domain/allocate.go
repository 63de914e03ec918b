package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/idutil"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Allocate sells entries of an open raffle to the request user. All steps run
// in one transaction: the sold counter is increased by a conditional update
// on the raffle row, so concurrent allocations are serialized by the row lock
// and the raffle can never be oversold.
func (d *raffleDomain) Allocate(
	ctx context.Context, req *model.AllocateRequest,
) (*model.AllocateResponse, error) {
	resp, closed, err := d.allocate(ctx, req)

	code := "0"
	var errx errorx.Error
	if errors.As(err, &errx) {
		code = fmt.Sprint(errx.Code)
	}
	common.PromCounters[common.RaffleAllocationsTotal].WithLabelValues(code).Inc()

	if err != nil {
		return nil, err
	}

	common.PromCounters[common.RaffleEntriesAllocated].WithLabelValues().Add(float64(len(resp.EntryNumbers)))
	if closed {
		common.PromCounters[common.RaffleClosuresTotal].WithLabelValues(string(entity.CloseBySoldOut)).Inc()
		d.publishEvent(ctx, model.RaffleEvent{
			Event:    model.RaffleClosedEvent,
			RaffleID: req.RaffleID,
			Status:   string(entity.RaffleClosing),
			Reason:   string(entity.CloseBySoldOut),
		})
	}

	return resp, nil
}

func (d *raffleDomain) allocate(
	ctx context.Context, req *model.AllocateRequest,
) (*model.AllocateResponse, bool, error) {
	cfg := xcontext.Configs(ctx).Raffle
	if req.RaffleID == "" {
		return nil, false, errorx.New(errorx.BadRequest, "Not allow empty raffle id")
	}

	if req.Quantity <= 0 || req.Quantity > cfg.MaxQuantityPerPurchase {
		return nil, false, errorx.New(errorx.BadRequest,
			"Quantity must be between 1 and %d", cfg.MaxQuantityPerPurchase)
	}

	userID := xcontext.RequestUserID(ctx)
	if userID == "" {
		return nil, false, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
	}

	now := common.Now()

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.RollbackDBTransaction(ctx)

	err := d.raffleRepo.IncreaseSoldEntries(ctx, req.RaffleID, req.Quantity, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, d.explainReserveFailure(ctx, req.RaffleID, now)
		}

		xcontext.Logger(ctx).Errorf("Cannot increase sold entries: %v", err)
		return nil, false, errorx.Unknown
	}

	// The raffle row is locked by this transaction from now on.
	raffle, err := d.raffleRepo.GetByID(ctx, req.RaffleID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle after reserving: %v", err)
		return nil, false, errorx.Unknown
	}
	soldBefore := raffle.SoldEntries - req.Quantity

	if raffle.MaxEntriesPerUser > 0 {
		owned, err := d.entryRepo.CountByOwner(ctx, raffle.ID, userID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot count entries of user: %v", err)
			return nil, false, errorx.Unknown
		}

		if int(owned)+req.Quantity > raffle.MaxEntriesPerUser {
			return nil, false, errorx.New(errorx.PerUserLimitExceeded,
				"You can own at most %d entries, you already have %d", raffle.MaxEntriesPerUser, owned)
		}
	}

	cost := raffle.PricePerEntry.Mul(decimal.NewFromInt(int64(req.Quantity)))
	if cost.IsPositive() {
		if err := d.walletRepo.Debit(ctx, userID, cost); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, errorx.New(errorx.InsufficientBalance, "Not enough balance")
			}

			xcontext.Logger(ctx).Errorf("Cannot debit wallet: %v", err)
			return nil, false, errorx.Unknown
		}
	}

	entries := make([]entity.Entry, 0, req.Quantity)
	entryNumbers := make([]int, 0, req.Quantity)
	for i := 0; i < req.Quantity; i++ {
		entries = append(entries, entity.Entry{
			SnowFlakeBase: entity.SnowFlakeBase{ID: idutil.NextID(), CreatedAt: now},
			RaffleID:      raffle.ID,
			OwnerID:       userID,
			EntryNumber:   soldBefore + i,
		})
		entryNumbers = append(entryNumbers, soldBefore+i)
	}

	if err := d.entryRepo.CreateMany(ctx, entries); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create entries: %v", err)
		return nil, false, errorx.Unknown
	}

	err = d.walletRepo.CreateTransaction(ctx, &entity.WalletTransaction{
		SnowFlakeBase: entity.SnowFlakeBase{ID: idutil.NextID(), CreatedAt: now},
		UserID:        userID,
		RaffleID:      raffle.ID,
		Amount:        cost.Neg(),
		Reason:        entity.WalletPurchaseEntries,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create wallet transaction: %v", err)
		return nil, false, errorx.Unknown
	}

	closed := false
	if raffle.IsSoldOut() {
		closed, err = d.closeRaffle(ctx, raffle.ID, entity.CloseBySoldOut, now)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot close sold out raffle: %v", err)
			return nil, false, errorx.Unknown
		}

		if closed {
			raffle.Status = entity.RaffleClosing
		}
	}

	if err := xcontext.CommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit allocation: %v", err)
		return nil, false, errorx.Unknown
	}

	return &model.AllocateResponse{
		RaffleID:     raffle.ID,
		EntryNumbers: entryNumbers,
		SoldEntries:  raffle.SoldEntries,
		Status:       string(raffle.Status),
	}, closed, nil
}

// explainReserveFailure finds out why the conditional update of the sold
// counter did not change any row.
func (d *raffleDomain) explainReserveFailure(ctx context.Context, raffleID string, now time.Time) error {
	raffle, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return errorx.Unknown
	}

	if raffle.Status != entity.RaffleOpen {
		return errorx.New(errorx.RaffleNotOpen, "Raffle is %s", raffle.Status)
	}

	if raffle.Deadline.Valid && !raffle.Deadline.Time.After(now) {
		return errorx.New(errorx.RaffleNotOpen, "Raffle has passed its deadline")
	}

	return errorx.New(errorx.CapacityExceeded,
		"Only %d entries left", raffle.TotalEntries-raffle.SoldEntries)
}
