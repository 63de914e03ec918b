package repository

import (
	"context"

	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository interface {
	Create(ctx context.Context, wallet *entity.Wallet) error
	GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error)
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error

	CreateTransaction(ctx context.Context, tx *entity.WalletTransaction) error
	GetTransactions(ctx context.Context, userID string, offset, limit int) ([]entity.WalletTransaction, error)
}

type walletRepository struct{}

func NewWalletRepository() *walletRepository {
	return &walletRepository{}
}

func (r *walletRepository) Create(ctx context.Context, wallet *entity.Wallet) error {
	return xcontext.DB(ctx).Omit("User").Create(wallet).Error
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var result entity.Wallet
	if err := xcontext.DB(ctx).Take(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

// Debit subtracts the amount from the balance. It returns
// gorm.ErrRecordNotFound if the wallet does not exist or the balance is not
// enough.
func (r *walletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	tx := xcontext.DB(ctx).Model(&entity.Wallet{}).
		Where("user_id=? AND balance>=?", userID, amount).
		Update("balance", gorm.Expr("balance-?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Credit adds the amount to the balance, the wallet is created if it does not
// exist.
func (r *walletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	return xcontext.DB(ctx).Omit("User").Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance": gorm.Expr("balance+?", amount),
		}),
	}).Create(&entity.Wallet{UserID: userID, Balance: amount}).Error
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *entity.WalletTransaction) error {
	return xcontext.DB(ctx).Omit("User").Create(tx).Error
}

func (r *walletRepository) GetTransactions(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.WalletTransaction, error) {
	var result []entity.WalletTransaction
	err := xcontext.DB(ctx).
		Where("user_id=?", userID).
		Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
