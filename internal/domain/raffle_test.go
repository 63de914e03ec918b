package domain

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/idutil"
	"github.com/rafflehub/backend/pkg/testutil"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRaffleDomain(t *testing.T, publisher *testutil.MockPublisher) *raffleDomain {
	formula, err := draw.New(draw.SHA256TimestampSum, "")
	require.NoError(t, err)

	return newTestRaffleDomainWithFormula(publisher, formula)
}

func newTestRaffleDomainWithFormula(publisher *testutil.MockPublisher, formula draw.Formula) *raffleDomain {
	return NewRaffleDomain(
		repository.NewRaffleRepository(),
		repository.NewEntryRepository(),
		repository.NewWalletRepository(),
		repository.NewUserRepository(),
		formula,
		&testutil.MockRedisClient{},
		publisher,
	)
}

func getEvents(t *testing.T, ctx context.Context, publisher *testutil.MockPublisher) []model.RaffleEvent {
	events := []model.RaffleEvent{}
	for _, pack := range publisher.Messages(xcontext.Configs(ctx).Kafka.Topic) {
		var event model.RaffleEvent
		require.NoError(t, json.Unmarshal(pack.Msg, &event))
		events = append(events, event)
	}

	return events
}

func Test_raffleDomain_Create(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		req     *model.CreateRaffleRequest
		wantErr error
	}{
		{
			name:   "happy case",
			userID: testutil.User1.ID,
			req: &model.CreateRaffleRequest{
				Title:             "Signed jersey",
				TotalEntries:      100,
				PricePerEntry:     "2.5",
				MaxEntriesPerUser: 5,
				Deadline:          time.Now().Add(time.Hour).Format(time.RFC3339),
			},
		},
		{
			name:    "permission denied",
			userID:  testutil.User2.ID,
			req:     &model.CreateRaffleRequest{Title: "x", TotalEntries: 1, PricePerEntry: "1"},
			wantErr: errorx.New(errorx.PermissionDenied, "Permission denied"),
		},
		{
			name:    "empty title",
			userID:  testutil.User1.ID,
			req:     &model.CreateRaffleRequest{TotalEntries: 1, PricePerEntry: "1"},
			wantErr: errorx.New(errorx.BadRequest, "Not allow empty title"),
		},
		{
			name:    "zero entries",
			userID:  testutil.User1.ID,
			req:     &model.CreateRaffleRequest{Title: "x", PricePerEntry: "1"},
			wantErr: errorx.New(errorx.BadRequest, "The number of entries must be a positive number"),
		},
		{
			name:    "negative price",
			userID:  testutil.User1.ID,
			req:     &model.CreateRaffleRequest{Title: "x", TotalEntries: 1, PricePerEntry: "-1"},
			wantErr: errorx.New(errorx.BadRequest, "Invalid price per entry"),
		},
		{
			name:   "deadline in the past",
			userID: testutil.User1.ID,
			req: &model.CreateRaffleRequest{
				Title:         "x",
				TotalEntries:  1,
				PricePerEntry: "1",
				Deadline:      time.Now().Add(-time.Hour).Format(time.RFC3339),
			},
			wantErr: errorx.New(errorx.BadRequest, "Deadline must be in the future"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.MockContextWithUserID(tt.userID)
			testutil.CreateFixtureDb(ctx)
			d := newTestRaffleDomain(t, &testutil.MockPublisher{})

			got, err := d.Create(ctx, tt.req)
			if tt.wantErr != nil {
				require.Equal(t, tt.wantErr, err)
				return
			}

			require.NoError(t, err)
			raffle, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: got.ID})
			require.NoError(t, err)
			require.Equal(t, tt.req.Title, raffle.Raffle.Title)
			require.Equal(t, string(entity.RaffleOpen), raffle.Raffle.Status)
			require.Equal(t, "2.5", raffle.Raffle.PricePerEntry)
			require.Equal(t, 0, raffle.Raffle.SoldEntries)
			require.NotEmpty(t, raffle.Raffle.Deadline)
		})
	}
}

func Test_raffleDomain_Allocate(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		req     *model.AllocateRequest
		want    *model.AllocateResponse
		wantErr error
	}{
		{
			name:   "happy case",
			userID: testutil.User2.ID,
			req:    &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 2},
			want: &model.AllocateResponse{
				RaffleID:     testutil.Raffle1.ID,
				EntryNumbers: []int{0, 1},
				SoldEntries:  2,
				Status:       string(entity.RaffleOpen),
			},
		},
		{
			name:    "zero quantity",
			userID:  testutil.User2.ID,
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle1.ID},
			wantErr: errorx.New(errorx.BadRequest, "Quantity must be between 1 and 100"),
		},
		{
			name:    "not authenticated",
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1},
			wantErr: errorx.New(errorx.Unauthenticated, "You need to authenticate before"),
		},
		{
			name:    "not found raffle",
			userID:  testutil.User2.ID,
			req:     &model.AllocateRequest{RaffleID: "invalid", Quantity: 1},
			wantErr: errorx.New(errorx.NotFound, "Not found raffle"),
		},
		{
			name:    "capacity exceeded",
			userID:  testutil.User2.ID,
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 11},
			wantErr: errorx.New(errorx.CapacityExceeded, "Only 10 entries left"),
		},
		{
			name:    "per user limit exceeded",
			userID:  testutil.User2.ID,
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle2.ID, Quantity: 3},
			wantErr: errorx.New(errorx.PerUserLimitExceeded, "You can own at most 2 entries, you already have 0"),
		},
		{
			name:    "insufficient balance",
			userID:  testutil.User4.ID,
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1},
			wantErr: errorx.New(errorx.InsufficientBalance, "Not enough balance"),
		},
		{
			name:    "user without wallet",
			userID:  testutil.User1.ID,
			req:     &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1},
			wantErr: errorx.New(errorx.InsufficientBalance, "Not enough balance"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.MockContextWithUserID(tt.userID)
			testutil.CreateFixtureDb(ctx)
			d := newTestRaffleDomain(t, &testutil.MockPublisher{})

			got, err := d.Allocate(ctx, tt.req)
			if tt.wantErr != nil {
				require.Equal(t, tt.wantErr, err)

				// Nothing is changed by a failed allocation.
				raffle, err := repository.NewRaffleRepository().GetByID(ctx, testutil.Raffle1.ID)
				require.NoError(t, err)
				require.Equal(t, 0, raffle.SoldEntries)

				entries, err := repository.NewEntryRepository().GetByRaffleID(ctx, testutil.Raffle1.ID)
				require.NoError(t, err)
				require.Empty(t, entries)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			wallet, err := repository.NewWalletRepository().GetByUserID(ctx, tt.userID)
			require.NoError(t, err)
			require.True(t, decimal.NewFromInt(90).Equal(wallet.Balance), wallet.Balance.String())

			txs, err := repository.NewWalletRepository().GetTransactions(ctx, tt.userID, 0, 10)
			require.NoError(t, err)
			require.Len(t, txs, 1)
			require.True(t, decimal.NewFromInt(-10).Equal(txs[0].Amount))
			require.Equal(t, entity.WalletPurchaseEntries, txs[0].Reason)
		})
	}
}

func Test_raffleDomain_Allocate_InsufficientBalanceKeepsWallet(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User4.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	_, err := d.Allocate(ctx, &model.AllocateRequest{RaffleID: testutil.Raffle2.ID, Quantity: 2})
	require.NoError(t, err)

	// 1 coin is left, an entry of raffle1 costs 5.
	_, err = d.Allocate(ctx, &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1})
	require.True(t, errorx.Is(err, errorx.InsufficientBalance))

	wallet, err := repository.NewWalletRepository().GetByUserID(ctx, testutil.User4.ID)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(1).Equal(wallet.Balance), wallet.Balance.String())

	raffle, err := repository.NewRaffleRepository().GetByID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	require.Equal(t, 0, raffle.SoldEntries)
}

func Test_raffleDomain_Allocate_PerUserLimitAcrossPurchases(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User2.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	_, err := d.Allocate(ctx, &model.AllocateRequest{RaffleID: testutil.Raffle2.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = d.Allocate(ctx, &model.AllocateRequest{RaffleID: testutil.Raffle2.ID, Quantity: 2})
	require.Equal(t,
		errorx.New(errorx.PerUserLimitExceeded, "You can own at most 2 entries, you already have 1"), err)

	got, err := d.Allocate(ctx, &model.AllocateRequest{RaffleID: testutil.Raffle2.ID, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, []int{1}, got.EntryNumbers)
}

// The test database has a single connection, so the allocation transactions
// run one after another and row lock contention is not exercised here. The
// conditional update is what keeps a stale sold counter from overselling.
func Test_raffleDomain_Allocate_NoOversell(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}
	d := newTestRaffleDomain(t, publisher)

	raffle, err := testutil.SampleRaffle(ctx, &entity.Raffle{TotalEntries: 10})
	require.NoError(t, err)

	users := []string{}
	for i := 0; i < 15; i++ {
		user, err := testutil.SampleWallet(ctx, 100)
		require.NoError(t, err)
		users = append(users, user.ID)
	}

	var mu sync.Mutex
	sold := map[int]string{}
	failures := 0

	var g errgroup.Group
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			resp, err := d.Allocate(testutil.WithUserID(ctx, userID),
				&model.AllocateRequest{RaffleID: raffle.ID, Quantity: 1})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errorx.Is(err, errorx.CapacityExceeded) && !errorx.Is(err, errorx.RaffleNotOpen) {
					return err
				}

				failures++
				return nil
			}

			for _, n := range resp.EntryNumbers {
				if _, ok := sold[n]; ok {
					return errorx.New(errorx.Internal, "entry %d is sold twice", n)
				}
				sold[n] = userID
			}

			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, sold, 10)
	require.Equal(t, 5, failures)
	for i := 0; i < 10; i++ {
		require.Contains(t, sold, i)
	}

	got, err := repository.NewRaffleRepository().GetByID(ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, 10, got.SoldEntries)
	require.Equal(t, entity.RaffleClosing, got.Status)
	require.Equal(t, entity.CloseBySoldOut, got.CloseReason)

	entries, err := repository.NewEntryRepository().GetByRaffleID(ctx, raffle.ID)
	require.NoError(t, err)
	require.Len(t, entries, 10)

	events := getEvents(t, ctx, publisher)
	require.Len(t, events, 1)
	require.Equal(t, model.RaffleClosedEvent, events[0].Event)
	require.Equal(t, string(entity.CloseBySoldOut), events[0].Reason)
}

// Ten entries of 5 coins: A buys 9, B buys 1, the raffle closes, concurrent
// draw requests select exactly one winner and the result verifies.
func Test_raffleDomain_SoldOutDrawAndVerify(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}
	d := newTestRaffleDomain(t, publisher)

	a := testutil.WithUserID(ctx, testutil.User2.ID)
	b := testutil.WithUserID(ctx, testutil.User3.ID)

	got, err := d.Allocate(a, &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 9})
	require.NoError(t, err)
	require.Equal(t, string(entity.RaffleOpen), got.Status)

	got, err = d.Allocate(b, &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, []int{9}, got.EntryNumbers)
	require.Equal(t, string(entity.RaffleClosing), got.Status)

	_, err = d.Allocate(b, &model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 1})
	require.Equal(t, errorx.New(errorx.RaffleNotOpen, "Raffle is closing"), err)

	var mu sync.Mutex
	results := []model.DrawResult{}

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
			if err != nil {
				if errorx.Is(err, errorx.AlreadyDrawn) || errorx.Is(err, errorx.DrawInProgress) {
					return nil
				}
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			results = append(results, resp.Result)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	fresh := 0
	for _, r := range results {
		if !r.AlreadyDrawn {
			fresh++
		}
		require.Equal(t, string(entity.RaffleCompleted), r.Status)
		require.Equal(t, results[0].WinningEntryNumber, r.WinningEntryNumber)
		require.Equal(t, results[0].WinnerID, r.WinnerID)
	}
	require.Equal(t, 1, fresh)

	result := results[0]
	require.NotNil(t, result.WinningEntryNumber)
	require.Equal(t, 10, result.TotalEntries)
	require.Equal(t, draw.SHA256TimestampSum, result.Formula)
	if *result.WinningEntryNumber == 9 {
		require.Equal(t, testutil.User3.ID, result.WinnerID)
	} else {
		require.Equal(t, testutil.User2.ID, result.WinnerID)
	}

	// Requests after the draw return the same result.
	again, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, again.Result.AlreadyDrawn)
	require.Equal(t, result.Seed, again.Result.Seed)

	entries, err := repository.NewEntryRepository().GetByRaffleID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	winning := 0
	for _, e := range entries {
		if e.IsWinning {
			winning++
			require.Equal(t, *result.WinningEntryNumber, e.EntryNumber)
		}
	}
	require.Equal(t, 1, winning)

	verification, err := d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, verification.Valid, verification.Reason)
	require.Equal(t, *result.WinningEntryNumber, verification.RecomputedIndex)
	require.Equal(t, result.WinnerID, verification.RecomputedWinner)

	events := getEvents(t, ctx, publisher)
	require.Len(t, events, 2)
	require.Equal(t, model.RaffleClosedEvent, events[0].Event)
	require.Equal(t, model.RaffleCompletedEvent, events[1].Event)
	require.Equal(t, result.WinnerID, events[1].WinnerID)
}

// Five entries, no sales until the deadline: the raffle closes and the draw
// cancels it without a winner.
func Test_raffleDomain_DeadlineWithoutSales(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}
	d := newTestRaffleDomain(t, publisher)

	raffle, err := testutil.SampleRaffle(ctx, &entity.Raffle{
		TotalEntries: 5,
		Deadline:     sql.NullTime{Time: time.Now().UTC().Add(-time.Second), Valid: true},
	})
	require.NoError(t, err)

	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: raffle.ID, Quantity: 1})
	require.Equal(t, errorx.New(errorx.RaffleNotOpen, "Raffle has passed its deadline"), err)

	n, err := d.CloseExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	closed, err := repository.NewRaffleRepository().GetByID(ctx, raffle.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleClosing, closed.Status)
	require.Equal(t, entity.CloseByDeadline, closed.CloseReason)

	n, err = d.DrawPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.True(t, resp.Result.AlreadyDrawn)
	require.Equal(t, string(entity.RaffleCancelled), resp.Result.Status)
	require.Nil(t, resp.Result.WinningEntryNumber)
	require.Empty(t, resp.Result.WinnerID)

	events := getEvents(t, ctx, publisher)
	require.Len(t, events, 2)
	require.Equal(t, model.RaffleClosedEvent, events[0].Event)
	require.Equal(t, model.RaffleCancelledEvent, events[1].Event)
}

func Test_raffleDomain_RequestDraw_NotDrawable(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	future := time.Now().UTC().Add(time.Hour)
	countdown, err := testutil.SampleRaffle(ctx, &entity.Raffle{
		Status: entity.RaffleClosing,
		DrawAt: sql.NullTime{Time: future, Valid: true},
	})
	require.NoError(t, err)

	drawing, err := testutil.SampleRaffle(ctx, &entity.Raffle{
		Status:      entity.RaffleDrawing,
		DrawAttempt: "attempt",
		DrawingAt:   sql.NullTime{Time: time.Now().UTC(), Valid: true},
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		raffleID string
		wantCode errorx.Code
	}{
		{
			name:     "empty id",
			wantCode: errorx.BadRequest,
		},
		{
			name:     "not found",
			raffleID: "invalid",
			wantCode: errorx.NotFound,
		},
		{
			name:     "open raffle",
			raffleID: testutil.Raffle1.ID,
			wantCode: errorx.NotReady,
		},
		{
			name:     "countdown not elapsed",
			raffleID: countdown.ID,
			wantCode: errorx.NotReady,
		},
		{
			name:     "drawing raffle",
			raffleID: drawing.ID,
			wantCode: errorx.DrawInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: tt.raffleID})
			require.True(t, errorx.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

func Test_raffleDomain_RecoverStuckDrawing(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}
	d := newTestRaffleDomain(t, publisher)

	random := hex.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	now := time.Now().UTC().Truncate(time.Millisecond)
	stuck, err := testutil.SampleRaffle(ctx, &entity.Raffle{
		TotalEntries: 2,
		SoldEntries:  2,
		Status:       entity.RaffleDrawing,
		ClosedAt:     sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
		CloseReason:  entity.CloseBySoldOut,
		DrawAttempt:  "crashed",
		DrawingAt:    sql.NullTime{Time: now.Add(-2 * time.Minute), Valid: true},
		DrawRandom:   random,
	})
	require.NoError(t, err)

	err = repository.NewEntryRepository().CreateMany(ctx, []entity.Entry{
		{
			SnowFlakeBase: entity.SnowFlakeBase{ID: idutil.NextID(), CreatedAt: now.Add(-2 * time.Hour)},
			RaffleID:      stuck.ID,
			OwnerID:       testutil.User2.ID,
			EntryNumber:   0,
		},
		{
			SnowFlakeBase: entity.SnowFlakeBase{ID: idutil.NextID(), CreatedAt: now.Add(-time.Hour)},
			RaffleID:      stuck.ID,
			OwnerID:       testutil.User3.ID,
			EntryNumber:   1,
		},
	})
	require.NoError(t, err)

	running, err := testutil.SampleRaffle(ctx, &entity.Raffle{
		Status:      entity.RaffleDrawing,
		DrawAttempt: "running",
		DrawingAt:   sql.NullTime{Time: now, Valid: true},
	})
	require.NoError(t, err)

	n, err := d.RecoverStuckDrawing(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	raffleRepo := repository.NewRaffleRepository()
	got, err := raffleRepo.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleClosing, got.Status)
	require.Empty(t, got.DrawAttempt)

	got, err = raffleRepo.GetByID(ctx, running.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleDrawing, got.Status)

	events := getEvents(t, ctx, publisher)
	require.Len(t, events, 1)
	require.Equal(t, model.RaffleIntegrityEvent, events[0].Event)

	// The retry replays the random stored by the crashed attempt.
	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: stuck.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.RaffleCompleted), resp.Result.Status)
	require.Equal(t, random, resp.Result.Proof["random"])

	got, err = raffleRepo.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	require.Equal(t, random, got.DrawRandom)
}

func Test_raffleDomain_Verify_Tampered(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}
	d := newTestRaffleDomain(t, publisher)

	_, err := d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)

	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.False(t, resp.Result.AlreadyDrawn)

	verification, err := d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, verification.Valid, verification.Reason)

	err = xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=?", testutil.Raffle1.ID).
		Update("winner_id", "intruder").Error
	require.NoError(t, err)

	verification, err = d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.False(t, verification.Valid)
	require.Contains(t, verification.Reason, "persisted winner differs")

	// Moving the creation time of an entry changes the timestamp sum.
	err = xcontext.DB(ctx).Model(&entity.Entry{}).
		Where("raffle_id=? AND entry_number=?", testutil.Raffle1.ID, 0).
		Update("created_at", time.Now().UTC().Add(time.Hour)).Error
	require.NoError(t, err)

	verification, err = d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.False(t, verification.Valid)
	require.Contains(t, verification.Reason, "timestamp sum mismatch")

	integrity := 0
	for _, event := range getEvents(t, ctx, publisher) {
		if event.Event == model.RaffleIntegrityEvent {
			integrity++
		}
	}
	require.Equal(t, 2, integrity)

	_, err = d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle2.ID})
	require.True(t, errorx.Is(err, errorx.NotReady))
}

func Test_raffleDomain_Verify_ProofNotMatchingRaffle(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	_, err := d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)

	_, err = d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)

	raffle, err := repository.NewRaffleRepository().GetByID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)

	tests := []struct {
		name       string
		column     string
		value      any
		original   any
		wantReason string
	}{
		{
			name:       "rerolled random",
			column:     "draw_random",
			value:      hex.EncodeToString([]byte{0, 1, 2, 3}),
			original:   raffle.DrawRandom,
			wantReason: "persisted random differs from the proof",
		},
		{
			name:       "moved close time",
			column:     "closed_at",
			value:      raffle.ClosedAt.Time.Add(time.Second),
			original:   raffle.ClosedAt.Time,
			wantReason: "persisted close time differs from the proof",
		},
		{
			name:       "switched formula",
			column:     "draw_formula",
			value:      draw.BLSBN256,
			original:   raffle.DrawFormula,
			wantReason: "persisted formula differs from the proof",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update := func(value any) {
				err := xcontext.DB(ctx).Model(&entity.Raffle{}).
					Where("id=?", testutil.Raffle1.ID).
					Update(tt.column, value).Error
				require.NoError(t, err)
			}

			update(tt.value)
			defer update(tt.original)

			got, err := d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
			require.NoError(t, err)
			require.False(t, got.Valid)
			require.Equal(t, tt.wantReason, got.Reason)
		})
	}

	got, err := d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, got.Valid, got.Reason)
}

// A draw recomputed with another BLS key is self consistent, the configured
// key must reject it.
func Test_raffleDomain_Verify_ForeignBLSKey(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)

	secret, _, err := draw.GenerateBLSKey()
	require.NoError(t, err)
	formula, err := draw.New(draw.BLSBN256, secret)
	require.NoError(t, err)
	d := newTestRaffleDomainWithFormula(&testutil.MockPublisher{}, formula)

	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)

	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.Equal(t, draw.BLSBN256, resp.Result.Formula)

	got, err := d.Verify(ctx, &model.VerifyRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, got.Valid, got.Reason)

	raffle, err := repository.NewRaffleRepository().GetByID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	entries, err := repository.NewEntryRepository().GetByRaffleID(ctx, raffle.ID)
	require.NoError(t, err)
	random, err := hex.DecodeString(raffle.DrawRandom)
	require.NoError(t, err)

	otherSecret, _, err := draw.GenerateBLSKey()
	require.NoError(t, err)
	other, err := draw.New(draw.BLSBN256, otherSecret)
	require.NoError(t, err)

	forged, err := draw.Compute(other, draw.Input{
		RaffleID: raffle.ID,
		ClosedAt: raffle.ClosedAt.Time,
		Random:   random,
		Entries:  toDrawEntries(entries),
	})
	require.NoError(t, err)

	err = xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=?", raffle.ID).
		Updates(map[string]any{
			"draw_seed":            forged.Proof.Seed,
			"draw_proof":           entity.Map(forged.Proof.ToMap()),
			"winning_entry_number": forged.Winner.Number,
			"winner_id":            forged.Winner.OwnerID,
		}).Error
	require.NoError(t, err)

	err = xcontext.DB(ctx).Model(&entity.Entry{}).
		Where("raffle_id=?", raffle.ID).
		Update("is_winning", false).Error
	require.NoError(t, err)
	require.NoError(t, repository.NewEntryRepository().SetWinning(ctx, raffle.ID, forged.Winner.Number))

	got, err = d.Verify(ctx, &model.VerifyRequest{RaffleID: raffle.ID})
	require.NoError(t, err)
	require.False(t, got.Valid)
	require.Contains(t, got.Reason, "public key does not match the configured key")
}

func Test_raffleDomain_RequestDraw_EngineFailure(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	publisher := &testutil.MockPublisher{}

	// A BLS formula without a secret key cannot sign.
	broken, err := draw.New(draw.BLSBN256, "")
	require.NoError(t, err)
	d := newTestRaffleDomainWithFormula(publisher, broken)

	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)
	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 5})
	require.NoError(t, err)

	_, err = d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.Equal(t, errorx.Unknown, err)

	raffleRepo := repository.NewRaffleRepository()
	raffle, err := raffleRepo.GetByID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	require.Equal(t, entity.RaffleClosing, raffle.Status)
	require.Empty(t, raffle.DrawAttempt)
	require.NotEmpty(t, raffle.DrawRandom)
	random := raffle.DrawRandom

	entries, err := repository.NewEntryRepository().GetByRaffleID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, e.IsWinning)
	}

	// The retry replays the random of the failed attempt.
	d.formula, err = draw.New(draw.SHA256TimestampSum, "")
	require.NoError(t, err)

	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.False(t, resp.Result.AlreadyDrawn)
	require.Equal(t, string(entity.RaffleCompleted), resp.Result.Status)
	require.Equal(t, random, resp.Result.Proof["random"])

	raffle, err = raffleRepo.GetByID(ctx, testutil.Raffle1.ID)
	require.NoError(t, err)
	require.Equal(t, random, raffle.DrawRandom)

	events := getEvents(t, ctx, publisher)
	require.Len(t, events, 2)
	require.Equal(t, model.RaffleClosedEvent, events[0].Event)
	require.Equal(t, model.RaffleCompletedEvent, events[1].Event)
}

func Test_raffleDomain_CloseAndCancel(t *testing.T) {
	ctx := testutil.MockContextWithUserID(testutil.User1.ID)
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	_, err := d.CloseByOperator(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.CloseRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.Equal(t, errorx.New(errorx.PermissionDenied, "Permission denied"), err)

	_, err = d.CloseByOperator(ctx, &model.CloseRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)

	_, err = d.CloseByOperator(ctx, &model.CloseRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.Equal(t, errorx.New(errorx.RaffleNotOpen, "Raffle is closing"), err)

	raffle, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.RaffleClosing), raffle.Raffle.Status)
	require.Equal(t, string(entity.CloseByOperator), raffle.Raffle.CloseReason)

	// The deadline sweep does not touch raffles which are not expired.
	n, err := d.CloseExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	_, err = d.Cancel(ctx, &model.CancelRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)

	_, err = d.Cancel(ctx, &model.CancelRaffleRequest{RaffleID: testutil.Raffle1.ID})
	require.Equal(t, errorx.New(errorx.AlreadyDrawn, "Raffle is already finished"), err)

	resp, err := d.RequestDraw(ctx, &model.RequestDrawRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.True(t, resp.Result.AlreadyDrawn)
	require.Equal(t, string(entity.RaffleCancelled), resp.Result.Status)
}

func Test_raffleDomain_GetEntries(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	d := newTestRaffleDomain(t, &testutil.MockPublisher{})

	_, err := d.Allocate(testutil.WithUserID(ctx, testutil.User2.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = d.Allocate(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.AllocateRequest{RaffleID: testutil.Raffle1.ID, Quantity: 2})
	require.NoError(t, err)

	all, err := d.GetEntries(ctx, &model.GetEntriesRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.Len(t, all.Entries, 5)
	for i, e := range all.Entries {
		require.Equal(t, i, e.EntryNumber)
		require.NotZero(t, e.CreatedAtMs)
	}

	page, err := d.GetEntries(ctx, &model.GetEntriesRequest{RaffleID: testutil.Raffle1.ID, Offset: 3, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.Equal(t, testutil.User3.ID, page.Entries[0].OwnerID)

	mine, err := d.GetMyEntries(testutil.WithUserID(ctx, testutil.User3.ID),
		&model.GetMyEntriesRequest{RaffleID: testutil.Raffle1.ID})
	require.NoError(t, err)
	require.Len(t, mine.Entries, 2)
	require.Equal(t, 3, mine.Entries[0].EntryNumber)

	list, err := d.GetList(ctx, &model.GetRafflesRequest{Status: string(entity.RaffleOpen)})
	require.NoError(t, err)
	require.Len(t, list.Raffles, 2)

	_, err = d.GetList(ctx, &model.GetRafflesRequest{Status: "unknown"})
	require.True(t, errorx.Is(err, errorx.BadRequest))
}
