package main

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rafflehub/backend/config"
	"github.com/rafflehub/backend/internal/domain"
	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/migration"
	"github.com/rafflehub/backend/pkg/idutil"
	"github.com/rafflehub/backend/pkg/kafka"
	"github.com/rafflehub/backend/pkg/logger"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/rafflehub/backend/pkg/xredis"
	"github.com/urfave/cli/v2"

	_ "github.com/lib/pq"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	return idutil.SetNode(cctx.Int64("node"))
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx).Database

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{
			DSN:                       cfg.ConnectionString(),
			DefaultStringSize:         256,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		})
	case "postgres":
		sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
		if err != nil {
			panic(err)
		}
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnectionString())
	default:
		panic(fmt.Sprintf("unsupported database driver %q", cfg.Driver))
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(parseGormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		panic(err)
	}

	return db
}

func parseGormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "silent":
		return gormlogger.Silent
	default:
		return gormlogger.Error
	}
}

func (s *srv) migrateDB() {
	if err := migration.Migrate(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx, xcontext.Configs(s.ctx).Redis.Addr)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx).Kafka
	publisher, err := kafka.NewPublisher(cfg.ClientID, []string{cfg.Addr})
	if err != nil {
		panic(err)
	}

	s.publisher = publisher
}

func (s *srv) loadFormula() {
	cfg := xcontext.Configs(s.ctx).Raffle

	var err error
	s.formula, err = draw.New(cfg.SeedFormula, cfg.BLSSecretKey)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.userRepo = repository.NewUserRepository()
	s.walletRepo = repository.NewWalletRepository()
	s.raffleRepo = repository.NewRaffleRepository()
	s.entryRepo = repository.NewEntryRepository()
}

func (s *srv) loadDomains() {
	raffleDomain := domain.NewRaffleDomain(
		s.raffleRepo,
		s.entryRepo,
		s.walletRepo,
		s.userRepo,
		s.formula,
		s.redisClient,
		s.publisher,
	)

	s.raffleDomain = raffleDomain
	s.raffleSweeper = raffleDomain
	s.walletDomain = domain.NewWalletDomain(s.walletRepo, s.userRepo)
}
