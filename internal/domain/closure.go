package domain

import (
	"context"
	"errors"
	"time"

	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// Close moves the raffle from open to closing if the condition of the reason
// holds. It returns false without error if the raffle was not closed by this
// call.
func (d *raffleDomain) Close(ctx context.Context, raffleID string, reason entity.CloseReason) (bool, error) {
	closed, err := d.closeRaffle(ctx, raffleID, reason, common.Now())
	if err != nil {
		return false, err
	}

	if closed {
		common.PromCounters[common.RaffleClosuresTotal].WithLabelValues(string(reason)).Inc()
		xcontext.Logger(ctx).Infof("Raffle %s is closed by %s", raffleID, reason)
		d.publishEvent(ctx, model.RaffleEvent{
			Event:    model.RaffleClosedEvent,
			RaffleID: raffleID,
			Status:   string(entity.RaffleClosing),
			Reason:   string(reason),
		})
	}

	return closed, nil
}

func (d *raffleDomain) closeRaffle(
	ctx context.Context, raffleID string, reason entity.CloseReason, now time.Time,
) (bool, error) {
	// The countdown only applies to automatic closures, the operator forces
	// the draw to be available now.
	drawAt := now
	if reason != entity.CloseByOperator {
		drawAt = now.Add(xcontext.Configs(ctx).Raffle.DrawDelay)
	}

	err := d.raffleRepo.Close(ctx, raffleID, reason, now, drawAt)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (d *raffleDomain) CloseByOperator(
	ctx context.Context, req *model.CloseRaffleRequest,
) (*model.CloseRaffleResponse, error) {
	if err := d.globalRoleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	raffle, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if raffle.Status != entity.RaffleOpen {
		return nil, errorx.New(errorx.RaffleNotOpen, "Raffle is %s", raffle.Status)
	}

	closed, err := d.Close(ctx, raffle.ID, entity.CloseByOperator)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot close raffle: %v", err)
		return nil, errorx.Unknown
	}

	if !closed {
		return nil, errorx.New(errorx.RaffleNotOpen, "Raffle is not open anymore")
	}

	return &model.CloseRaffleResponse{}, nil
}

// CloseExpired closes every open raffle which is sold out or passed its
// deadline.
func (d *raffleDomain) CloseExpired(ctx context.Context) (int, error) {
	raffles, err := d.raffleRepo.GetClosable(ctx, common.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, raffle := range raffles {
		reason := entity.CloseByDeadline
		if raffle.IsSoldOut() {
			reason = entity.CloseBySoldOut
		}

		closed, err := d.Close(ctx, raffle.ID, reason)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot close raffle %s: %v", raffle.ID, err)
			continue
		}

		if closed {
			count++
		}
	}

	return count, nil
}
