package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type RepositoryTestSuite struct {
	suite.Suite

	ctx        context.Context
	raffleRepo repository.RaffleRepository
	walletRepo repository.WalletRepository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = testutil.MockContext()
	testutil.CreateFixtureDb(s.ctx)
	s.raffleRepo = repository.NewRaffleRepository()
	s.walletRepo = repository.NewWalletRepository()
}

func (s *RepositoryTestSuite) TestIncreaseSoldEntries() {
	t := s.T()
	now := time.Now().UTC()

	require.NoError(t, s.raffleRepo.IncreaseSoldEntries(s.ctx, testutil.Raffle1.ID, 4, now))
	require.NoError(t, s.raffleRepo.IncreaseSoldEntries(s.ctx, testutil.Raffle1.ID, 6, now))

	err := s.raffleRepo.IncreaseSoldEntries(s.ctx, testutil.Raffle1.ID, 1, now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	raffle, err := s.raffleRepo.GetByID(s.ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	require.Equal(t, 10, raffle.SoldEntries)

	// Raffle2 has a deadline in one hour.
	err = s.raffleRepo.IncreaseSoldEntries(s.ctx, testutil.Raffle2.ID, 1, now.Add(2*time.Hour))
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestClose() {
	t := s.T()
	now := time.Now().UTC()

	// Neither sold out nor expired.
	err := s.raffleRepo.Close(s.ctx, testutil.Raffle1.ID, entity.CloseBySoldOut, now, now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	err = s.raffleRepo.Close(s.ctx, testutil.Raffle2.ID, entity.CloseByDeadline, now, now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	closable, err := s.raffleRepo.GetClosable(s.ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, closable, 1)
	require.Equal(t, testutil.Raffle2.ID, closable[0].ID)

	drawAt := now.Add(time.Minute)
	require.NoError(t, s.raffleRepo.Close(s.ctx, testutil.Raffle1.ID, entity.CloseByOperator, now, drawAt))
	err = s.raffleRepo.Close(s.ctx, testutil.Raffle1.ID, entity.CloseByOperator, now, drawAt)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	raffle, err := s.raffleRepo.GetByID(s.ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleClosing, raffle.Status)
	require.Equal(t, entity.CloseByOperator, raffle.CloseReason)
	require.True(t, raffle.DrawAt.Valid)

	pending, err := s.raffleRepo.GetPendingDraw(s.ctx, now)
	require.NoError(t, err)
	require.Empty(t, pending)

	pending, err = s.raffleRepo.GetPendingDraw(s.ctx, drawAt.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func (s *RepositoryTestSuite) TestDrawingTransitions() {
	t := s.T()
	now := time.Now().UTC()

	raffle, err := testutil.SampleRaffle(s.ctx, &entity.Raffle{
		Status: entity.RaffleClosing,
		DrawAt: sql.NullTime{Time: now.Add(-time.Second), Valid: true},
	})
	require.NoError(t, err)

	require.NoError(t, s.raffleRepo.StartDrawing(s.ctx, raffle.ID, "first", now))
	err = s.raffleRepo.StartDrawing(s.ctx, raffle.ID, "second", now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, s.raffleRepo.SetDrawRandom(s.ctx, raffle.ID, "aa"))
	require.NoError(t, s.raffleRepo.SetDrawRandom(s.ctx, raffle.ID, "bb"))

	// Only the holder of the attempt can roll back.
	err = s.raffleRepo.RollbackDrawing(s.ctx, raffle.ID, "second")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.NoError(t, s.raffleRepo.RollbackDrawing(s.ctx, raffle.ID, "first"))

	got, err := s.raffleRepo.GetByID(s.ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleClosing, got.Status)
	require.Equal(t, "aa", got.DrawRandom)
	require.Empty(t, got.DrawAttempt)

	require.NoError(t, s.raffleRepo.StartDrawing(s.ctx, raffle.ID, "second", now))
	err = s.raffleRepo.CompleteDrawing(s.ctx, raffle.ID, "first", now, repository.CompleteDrawData{})
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	err = s.raffleRepo.CompleteDrawing(s.ctx, raffle.ID, "second", now, repository.CompleteDrawData{
		Formula:            "sha256-timestamp-sum",
		Seed:               "00",
		Proof:              entity.Map{"seed": "00"},
		WinningEntryNumber: 3,
		WinnerID:           testutil.User2.ID,
		TotalEntriesAtDraw: 10,
	})
	require.NoError(t, err)

	got, err = s.raffleRepo.GetByID(s.ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleCompleted, got.Status)
	require.Equal(t, int64(3), got.WinningEntryNumber.Int64)
	require.Equal(t, "00", got.DrawProof["seed"])

	err = s.raffleRepo.Cancel(s.ctx, raffle.ID, now)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestGetStuckDrawing() {
	t := s.T()
	now := time.Now().UTC()

	stuck, err := testutil.SampleRaffle(s.ctx, &entity.Raffle{
		Status:      entity.RaffleDrawing,
		DrawAttempt: "old",
		DrawingAt:   sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
	})
	require.NoError(t, err)

	_, err = testutil.SampleRaffle(s.ctx, &entity.Raffle{
		Status:      entity.RaffleDrawing,
		DrawAttempt: "new",
		DrawingAt:   sql.NullTime{Time: now, Valid: true},
	})
	require.NoError(t, err)

	raffles, err := s.raffleRepo.GetStuckDrawing(s.ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, raffles, 1)
	require.Equal(t, stuck.ID, raffles[0].ID)
}

func (s *RepositoryTestSuite) TestWalletDebitAndCredit() {
	t := s.T()

	require.NoError(t, s.walletRepo.Debit(s.ctx, testutil.User4.ID, decimal.NewFromInt(2)))
	err := s.walletRepo.Debit(s.ctx, testutil.User4.ID, decimal.NewFromInt(2))
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	require.NoError(t, s.walletRepo.Credit(s.ctx, testutil.User4.ID, decimal.NewFromInt(5)))
	wallet, err := s.walletRepo.GetByUserID(s.ctx, testutil.User4.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(6).Equal(wallet.Balance), wallet.Balance.String())

	// A missing wallet is created by the first credit.
	require.NoError(t, s.walletRepo.Credit(s.ctx, testutil.User1.ID, decimal.NewFromInt(1)))
	wallet, err = s.walletRepo.GetByUserID(s.ctx, testutil.User1.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1).Equal(wallet.Balance))
}
