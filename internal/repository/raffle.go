package repository

import (
	"context"
	"time"

	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type GetListRaffleFilter struct {
	Status []entity.RaffleStatus
	Offset int
	Limit  int
}

type CompleteDrawData struct {
	Formula            string
	Seed               string
	Proof              entity.Map
	WinningEntryNumber int
	WinnerID           string
	TotalEntriesAtDraw int
}

type RaffleRepository interface {
	Create(ctx context.Context, raffle *entity.Raffle) error
	GetByID(ctx context.Context, id string) (*entity.Raffle, error)
	GetList(ctx context.Context, filter GetListRaffleFilter) ([]entity.Raffle, error)

	// Allocation
	IncreaseSoldEntries(ctx context.Context, id string, quantity int, now time.Time) error

	// Closure
	Close(ctx context.Context, id string, reason entity.CloseReason, now, drawAt time.Time) error
	GetClosable(ctx context.Context, now time.Time) ([]entity.Raffle, error)
	Cancel(ctx context.Context, id string, now time.Time) error

	// Draw
	GetPendingDraw(ctx context.Context, now time.Time) ([]entity.Raffle, error)
	GetStuckDrawing(ctx context.Context, before time.Time) ([]entity.Raffle, error)
	StartDrawing(ctx context.Context, id, attempt string, now time.Time) error
	SetDrawRandom(ctx context.Context, id, random string) error
	CompleteDrawing(ctx context.Context, id, attempt string, now time.Time, data CompleteDrawData) error
	CancelDrawing(ctx context.Context, id, attempt string, now time.Time) error
	RollbackDrawing(ctx context.Context, id, attempt string) error
}

type raffleRepository struct{}

func NewRaffleRepository() *raffleRepository {
	return &raffleRepository{}
}

func checkAffected(tx *gorm.DB) error {
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) Create(ctx context.Context, raffle *entity.Raffle) error {
	return xcontext.DB(ctx).Create(raffle).Error
}

func (r *raffleRepository) GetByID(ctx context.Context, id string) (*entity.Raffle, error) {
	var result entity.Raffle
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetList(ctx context.Context, filter GetListRaffleFilter) ([]entity.Raffle, error) {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{})
	if len(filter.Status) > 0 {
		tx = tx.Where("status IN (?)", filter.Status)
	}

	if filter.Limit > 0 {
		tx = tx.Offset(filter.Offset).Limit(filter.Limit)
	}

	var result []entity.Raffle
	if err := tx.Order("created_at DESC").Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// IncreaseSoldEntries reserves quantity entries of an open raffle. It returns
// gorm.ErrRecordNotFound if the raffle is not open, its deadline passed or it
// has not enough remaining entries.
func (r *raffleRepository) IncreaseSoldEntries(ctx context.Context, id string, quantity int, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND sold_entries+?<=total_entries", id, entity.RaffleOpen, quantity).
		Where("deadline IS NULL OR deadline>?", now).
		Update("sold_entries", gorm.Expr("sold_entries+?", quantity))

	return checkAffected(tx)
}

// Close moves an open raffle to closing if the condition of the reason holds.
// It returns gorm.ErrRecordNotFound if nothing changed.
func (r *raffleRepository) Close(
	ctx context.Context, id string, reason entity.CloseReason, now, drawAt time.Time,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=?", id, entity.RaffleOpen)

	switch reason {
	case entity.CloseBySoldOut:
		tx = tx.Where("sold_entries>=total_entries")
	case entity.CloseByDeadline:
		tx = tx.Where("deadline IS NOT NULL AND deadline<=?", now)
	}

	tx = tx.Updates(map[string]any{
		"status":       entity.RaffleClosing,
		"closed_at":    now,
		"close_reason": reason,
		"draw_at":      drawAt,
	})

	return checkAffected(tx)
}

func (r *raffleRepository) GetClosable(ctx context.Context, now time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Where("status=?", entity.RaffleOpen).
		Where("sold_entries>=total_entries OR (deadline IS NOT NULL AND deadline<=?)", now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) Cancel(ctx context.Context, id string, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status IN (?)", id,
			[]entity.RaffleStatus{entity.RaffleOpen, entity.RaffleClosing, entity.RaffleDrawing}).
		Updates(map[string]any{
			"status":       entity.RaffleCancelled,
			"draw_attempt": "",
			"completed_at": now,
		})

	return checkAffected(tx)
}

func (r *raffleRepository) GetPendingDraw(ctx context.Context, now time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Where("status=? AND (draw_at IS NULL OR draw_at<=?)", entity.RaffleClosing, now).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) GetStuckDrawing(ctx context.Context, before time.Time) ([]entity.Raffle, error) {
	var result []entity.Raffle
	err := xcontext.DB(ctx).
		Where("status=? AND drawing_at<?", entity.RaffleDrawing, before).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// StartDrawing moves a closing raffle to drawing and records the attempt
// which holds it. Only one caller can succeed, others get
// gorm.ErrRecordNotFound.
func (r *raffleRepository) StartDrawing(ctx context.Context, id, attempt string, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=?", id, entity.RaffleClosing).
		Where("draw_at IS NULL OR draw_at<=?", now).
		Updates(map[string]any{
			"status":       entity.RaffleDrawing,
			"drawing_at":   now,
			"draw_attempt": attempt,
		})

	return checkAffected(tx)
}

// SetDrawRandom stores the random bytes of the draw if they are not stored
// yet. It is not an error if the random is already stored.
func (r *raffleRepository) SetDrawRandom(ctx context.Context, id, random string) error {
	return xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND draw_random=?", id, "").
		Update("draw_random", random).Error
}

func (r *raffleRepository) CompleteDrawing(
	ctx context.Context, id, attempt string, now time.Time, data CompleteDrawData,
) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND draw_attempt=?", id, entity.RaffleDrawing, attempt).
		Updates(map[string]any{
			"status":                entity.RaffleCompleted,
			"draw_formula":          data.Formula,
			"draw_seed":             data.Seed,
			"draw_proof":            data.Proof,
			"winning_entry_number":  data.WinningEntryNumber,
			"winner_id":             data.WinnerID,
			"total_entries_at_draw": data.TotalEntriesAtDraw,
			"completed_at":          now,
		})

	return checkAffected(tx)
}

func (r *raffleRepository) CancelDrawing(ctx context.Context, id, attempt string, now time.Time) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND draw_attempt=?", id, entity.RaffleDrawing, attempt).
		Updates(map[string]any{
			"status":                entity.RaffleCancelled,
			"total_entries_at_draw": 0,
			"completed_at":          now,
		})

	return checkAffected(tx)
}

// RollbackDrawing gives the raffle back to closing so that the draw can be
// requested again.
func (r *raffleRepository) RollbackDrawing(ctx context.Context, id, attempt string) error {
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=? AND status=? AND draw_attempt=?", id, entity.RaffleDrawing, attempt).
		Updates(map[string]any{
			"status":       entity.RaffleClosing,
			"draw_attempt": "",
			"drawing_at":   nil,
		})

	return checkAffected(tx)
}
