package testutil

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/shopspring/decimal"
)

// SampleRaffle creates a new open raffle in database. The sample raffle can
// be overwritten by non-zero fields of init.
//
// This function returns the sample raffle.
func SampleRaffle(ctx context.Context, init *entity.Raffle) (entity.Raffle, error) {
	sample := &entity.Raffle{
		Base:          entity.Base{ID: uuid.NewString()},
		Title:         uuid.NewString(),
		TotalEntries:  10,
		PricePerEntry: decimal.NewFromInt(1),
		Status:        entity.RaffleOpen,
		CreatedBy:     User1.ID,
	}

	if init != nil {
		overwriteFields(sample, *init)
	}

	if err := repository.NewRaffleRepository().Create(ctx, sample); err != nil {
		return *sample, err
	}

	return *sample, nil
}

// SampleWallet creates a user and its wallet with the given balance.
func SampleWallet(ctx context.Context, balance int64) (entity.User, error) {
	user := entity.User{
		Base: entity.Base{ID: uuid.NewString()},
		Name: uuid.NewString(),
		Role: entity.RoleUser,
	}

	if err := repository.NewUserRepository().Create(ctx, &user); err != nil {
		return user, err
	}

	wallet := &entity.Wallet{UserID: user.ID, Balance: decimal.NewFromInt(balance)}
	if err := repository.NewWalletRepository().Create(ctx, wallet); err != nil {
		return user, err
	}

	return user, nil
}

func overwriteFields[T any](origin *T, overwrite T) {
	originValue := reflect.ValueOf(origin).Elem()
	overwriteValue := reflect.ValueOf(overwrite)

	for i := 0; i < originValue.NumField(); i++ {
		field := overwriteValue.Field(i)
		if !field.IsZero() {
			originValue.Field(i).Set(field)
		}
	}
}
