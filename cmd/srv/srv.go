package main

import (
	"context"
	"net/http"

	"github.com/rafflehub/backend/internal/domain"
	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/pubsub"
	"github.com/rafflehub/backend/pkg/router"
	"github.com/rafflehub/backend/pkg/xredis"
	"github.com/urfave/cli/v2"
)

type srv struct {
	app *cli.App
	ctx context.Context

	redisClient xredis.Client
	publisher   pubsub.Publisher
	formula     draw.Formula

	userRepo   repository.UserRepository
	walletRepo repository.WalletRepository
	raffleRepo repository.RaffleRepository
	entryRepo  repository.EntryRepository

	raffleDomain domain.RaffleDomain
	walletDomain domain.WalletDomain

	// raffleSweeper is the same object as raffleDomain.
	raffleSweeper domain.RaffleSweeper

	router *router.Router
	server *http.Server
}
