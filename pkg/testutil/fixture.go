package testutil

import (
	"context"
	"database/sql"
	"time"

	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/shopspring/decimal"
)

var (
	// Users
	User1 = &entity.User{
		Base: entity.Base{ID: "user1"},
		Name: "user1",
		Role: entity.RoleSuperAdmin,
	}

	User2 = &entity.User{
		Base: entity.Base{ID: "user2"},
		Name: "user2",
		Role: entity.RoleUser,
	}

	User3 = &entity.User{
		Base: entity.Base{ID: "user3"},
		Name: "user3",
		Role: entity.RoleUser,
	}

	User4 = &entity.User{
		Base: entity.Base{ID: "user4"},
		Name: "user4",
		Role: entity.RoleUser,
	}

	Users = []*entity.User{User1, User2, User3, User4}

	// Wallets
	Wallet2 = &entity.Wallet{UserID: User2.ID, Balance: decimal.NewFromInt(100)}
	Wallet3 = &entity.Wallet{UserID: User3.ID, Balance: decimal.NewFromInt(100)}
	Wallet4 = &entity.Wallet{UserID: User4.ID, Balance: decimal.NewFromInt(3)}

	Wallets = []*entity.Wallet{Wallet2, Wallet3, Wallet4}

	// Raffles
	// Raffle1 has 10 entries of 5 coins, no limit per user.
	Raffle1 = &entity.Raffle{
		Base:          entity.Base{ID: "raffle1"},
		Title:         "Limited sneaker",
		TotalEntries:  10,
		PricePerEntry: decimal.NewFromInt(5),
		Status:        entity.RaffleOpen,
		CreatedBy:     User1.ID,
	}

	// Raffle2 has 5 entries and at most 2 entries per user.
	Raffle2 = &entity.Raffle{
		Base:              entity.Base{ID: "raffle2"},
		Title:             "Mechanical keyboard",
		TotalEntries:      5,
		PricePerEntry:     decimal.NewFromInt(1),
		MaxEntriesPerUser: 2,
		Status:            entity.RaffleOpen,
		Deadline:          sql.NullTime{Time: time.Now().UTC().Add(time.Hour), Valid: true},
		CreatedBy:         User1.ID,
	}

	Raffles = []*entity.Raffle{Raffle1, Raffle2}
)

func CreateFixtureDb(ctx context.Context) {
	InsertUsers(ctx)
	InsertWallets(ctx)
	InsertRaffles(ctx)
}

func InsertUsers(ctx context.Context) {
	userRepo := repository.NewUserRepository()
	for _, user := range Users {
		u := *user
		if err := userRepo.Create(ctx, &u); err != nil {
			panic(err)
		}
	}
}

func InsertWallets(ctx context.Context) {
	walletRepo := repository.NewWalletRepository()
	for _, wallet := range Wallets {
		w := *wallet
		if err := walletRepo.Create(ctx, &w); err != nil {
			panic(err)
		}
	}
}

func InsertRaffles(ctx context.Context) {
	raffleRepo := repository.NewRaffleRepository()
	for _, raffle := range Raffles {
		r := *raffle
		if err := raffleRepo.Create(ctx, &r); err != nil {
			panic(err)
		}
	}
}
