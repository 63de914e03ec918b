package domain

import (
	"context"
	"errors"

	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/idutil"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WalletDomain interface {
	GetBalance(context.Context, *model.GetBalanceRequest) (*model.GetBalanceResponse, error)
	Deposit(context.Context, *model.DepositRequest) (*model.DepositResponse, error)
	GetTransactions(context.Context, *model.GetTransactionsRequest) (*model.GetTransactionsResponse, error)
}

type walletDomain struct {
	walletRepo         repository.WalletRepository
	userRepo           repository.UserRepository
	globalRoleVerifier *common.GlobalRoleVerifier
}

func NewWalletDomain(
	walletRepo repository.WalletRepository,
	userRepo repository.UserRepository,
) *walletDomain {
	return &walletDomain{
		walletRepo:         walletRepo,
		userRepo:           userRepo,
		globalRoleVerifier: common.NewGlobalRoleVerifier(userRepo),
	}
}

func (d *walletDomain) GetBalance(
	ctx context.Context, req *model.GetBalanceRequest,
) (*model.GetBalanceResponse, error) {
	wallet, err := d.walletRepo.GetByUserID(ctx, xcontext.RequestUserID(ctx))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.GetBalanceResponse{Balance: decimal.Zero.String()}, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get wallet: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetBalanceResponse{Balance: wallet.Balance.String()}, nil
}

func (d *walletDomain) Deposit(ctx context.Context, req *model.DepositRequest) (*model.DepositResponse, error) {
	if err := d.globalRoleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, errorx.New(errorx.BadRequest, "Invalid amount")
	}

	if _, err := d.userRepo.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found user")
		}

		xcontext.Logger(ctx).Errorf("Cannot get user: %v", err)
		return nil, errorx.Unknown
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.RollbackDBTransaction(ctx)

	if err := d.walletRepo.Credit(ctx, req.UserID, amount); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot credit wallet: %v", err)
		return nil, errorx.Unknown
	}

	err = d.walletRepo.CreateTransaction(ctx, &entity.WalletTransaction{
		SnowFlakeBase: entity.SnowFlakeBase{ID: idutil.NextID(), CreatedAt: common.Now()},
		UserID:        req.UserID,
		Amount:        amount,
		Reason:        entity.WalletDeposit,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create wallet transaction: %v", err)
		return nil, errorx.Unknown
	}

	wallet, err := d.walletRepo.GetByUserID(ctx, req.UserID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get wallet: %v", err)
		return nil, errorx.Unknown
	}

	if err := xcontext.CommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit deposit: %v", err)
		return nil, errorx.Unknown
	}

	return &model.DepositResponse{Balance: wallet.Balance.String()}, nil
}

func (d *walletDomain) GetTransactions(
	ctx context.Context, req *model.GetTransactionsRequest,
) (*model.GetTransactionsResponse, error) {
	offset, limit, err := common.Pagination(ctx, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	txs, err := d.walletRepo.GetTransactions(ctx, xcontext.RequestUserID(ctx), offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get wallet transactions: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.WalletTransaction{}
	for i := range txs {
		result = append(result, model.ConvertWalletTransaction(&txs[i]))
	}

	return &model.GetTransactionsResponse{Transactions: result}, nil
}
