package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rafflehub/backend/internal/domain/cron"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startCron(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadFormula()
	s.loadRepos()
	s.loadDomains()

	interval := xcontext.Configs(s.ctx).Raffle.SweepInterval

	cronJobManager := cron.NewCronJobManager()
	cronJobManager.Register(cron.NewCloseRaffleCronJob(s.raffleSweeper, interval))
	cronJobManager.Register(cron.NewPendingDrawCronJob(s.raffleSweeper, interval))
	cronJobManager.Register(cron.NewStuckDrawingCronJob(s.raffleSweeper, interval))

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		<-signals
		cronJobManager.Cancel(s.ctx)
	}()

	cronJobManager.Start(s.ctx)
	return nil
}
