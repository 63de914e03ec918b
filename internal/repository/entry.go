package repository

import (
	"context"

	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/pkg/xcontext"
	"gorm.io/gorm"
)

type EntryRepository interface {
	CreateMany(ctx context.Context, entries []entity.Entry) error
	CountByOwner(ctx context.Context, raffleID, ownerID string) (int64, error)
	GetByRaffleID(ctx context.Context, raffleID string) ([]entity.Entry, error)
	GetListByRaffleID(ctx context.Context, raffleID string, offset, limit int) ([]entity.Entry, error)
	GetByOwner(ctx context.Context, raffleID, ownerID string) ([]entity.Entry, error)
	SetWinning(ctx context.Context, raffleID string, entryNumber int) error
}

type entryRepository struct{}

func NewEntryRepository() *entryRepository {
	return &entryRepository{}
}

func (r *entryRepository) CreateMany(ctx context.Context, entries []entity.Entry) error {
	return xcontext.DB(ctx).Omit("Raffle", "Owner").CreateInBatches(entries, 100).Error
}

func (r *entryRepository) CountByOwner(ctx context.Context, raffleID, ownerID string) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).Model(&entity.Entry{}).
		Where("raffle_id=? AND owner_id=?", raffleID, ownerID).
		Count(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}

// GetByRaffleID returns all entries of the raffle ordered by their numbers.
func (r *entryRepository) GetByRaffleID(ctx context.Context, raffleID string) ([]entity.Entry, error) {
	var result []entity.Entry
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("entry_number ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) GetListByRaffleID(
	ctx context.Context, raffleID string, offset, limit int,
) ([]entity.Entry, error) {
	var result []entity.Entry
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("entry_number ASC").
		Offset(offset).Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) GetByOwner(ctx context.Context, raffleID, ownerID string) ([]entity.Entry, error) {
	var result []entity.Entry
	err := xcontext.DB(ctx).
		Where("raffle_id=? AND owner_id=?", raffleID, ownerID).
		Order("entry_number ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *entryRepository) SetWinning(ctx context.Context, raffleID string, entryNumber int) error {
	tx := xcontext.DB(ctx).Model(&entity.Entry{}).
		Where("raffle_id=? AND entry_number=? AND is_winning=?", raffleID, entryNumber, false).
		Update("is_winning", true)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
