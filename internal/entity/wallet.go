package entity

import (
	"time"

	"github.com/rafflehub/backend/pkg/enum"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserID    string          `gorm:"primaryKey"`
	User      User            `gorm:"foreignKey:UserID"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,8)"`
	UpdatedAt time.Time
}

type WalletTransactionReason string

var (
	WalletPurchaseEntries = enum.New(WalletTransactionReason("purchase_entries"))
	WalletDeposit         = enum.New(WalletTransactionReason("deposit"))
)

type WalletTransaction struct {
	SnowFlakeBase

	UserID string `gorm:"index"`
	User   User   `gorm:"foreignKey:UserID"`

	RaffleID string

	// Amount is negative for a debit.
	Amount decimal.Decimal `gorm:"type:decimal(20,8)"`
	Reason WalletTransactionReason
}
