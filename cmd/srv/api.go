package main

import (
	"net/http"

	"github.com/rafflehub/backend/internal/middleware"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/pkg/authenticator"
	"github.com/rafflehub/backend/pkg/prometheus"
	"github.com/rafflehub/backend/pkg/router"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startApi(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadFormula()
	s.loadRepos()
	s.loadDomains()
	s.loadRouter()

	cfg := xcontext.Configs(s.ctx)
	s.server = &http.Server{
		Addr:    cfg.ApiServer.Address(),
		Handler: s.router.Handler(cfg.ApiServer.ServerConfigs),
	}

	xcontext.Logger(s.ctx).Infof("Starting server on port: %s", cfg.ApiServer.Port)
	if err := s.server.ListenAndServe(); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Server stopped")
	return nil
}

func (s *srv) loadRouter() {
	cfg := xcontext.Configs(s.ctx)
	s.router = router.New(xcontext.DB(s.ctx), cfg, xcontext.Logger(s.ctx))
	s.router.AddCloser(middleware.Logger())
	s.router.AddCloser(middleware.Prometheus())
	s.router.Handle("/metrics", prometheus.NewHandler())

	tokenEngine := authenticator.NewTokenEngine[model.AccessToken](
		cfg.Auth.TokenSecret, cfg.Auth.AccessToken.Expiration)
	authVerifier := middleware.NewAuthVerifier(tokenEngine)

	// These following APIs need authentication.
	authRouter := s.router.Branch()
	authRouter.Before(authVerifier.Middleware())
	{
		router.POST(authRouter, "/allocate", s.raffleDomain.Allocate)
		router.GET(authRouter, "/getMyEntries", s.raffleDomain.GetMyEntries)
		router.GET(authRouter, "/getBalance", s.walletDomain.GetBalance)
		router.GET(authRouter, "/getTransactions", s.walletDomain.GetTransactions)
	}

	// Operator APIs.
	adminRouter := authRouter.Branch()
	adminRouter.Before(middleware.NewOnlyAdmin(s.userRepo).Middleware())
	{
		router.POST(adminRouter, "/createRaffle", s.raffleDomain.Create)
		router.POST(adminRouter, "/closeRaffle", s.raffleDomain.CloseByOperator)
		router.POST(adminRouter, "/cancelRaffle", s.raffleDomain.Cancel)
		router.POST(adminRouter, "/deposit", s.walletDomain.Deposit)
	}

	// Public API, the draw can be requested by any untrusted caller.
	router.POST(s.router, "/requestDraw", s.raffleDomain.RequestDraw)
	router.GET(s.router, "/verify", s.raffleDomain.Verify)
	router.GET(s.router, "/getRaffle", s.raffleDomain.Get)
	router.GET(s.router, "/getRaffles", s.raffleDomain.GetList)
	router.GET(s.router, "/getEntries", s.raffleDomain.GetEntries)
}
