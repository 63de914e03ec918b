package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rafflehub/backend/internal/common"
	"github.com/rafflehub/backend/internal/domain/draw"
	"github.com/rafflehub/backend/internal/entity"
	"github.com/rafflehub/backend/internal/model"
	"github.com/rafflehub/backend/internal/repository"
	"github.com/rafflehub/backend/pkg/enum"
	"github.com/rafflehub/backend/pkg/errorx"
	"github.com/rafflehub/backend/pkg/pubsub"
	"github.com/rafflehub/backend/pkg/xcontext"
	"github.com/rafflehub/backend/pkg/xredis"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RaffleDomain interface {
	Create(context.Context, *model.CreateRaffleRequest) (*model.CreateRaffleResponse, error)
	Get(context.Context, *model.GetRaffleRequest) (*model.GetRaffleResponse, error)
	GetList(context.Context, *model.GetRafflesRequest) (*model.GetRafflesResponse, error)
	GetEntries(context.Context, *model.GetEntriesRequest) (*model.GetEntriesResponse, error)
	GetMyEntries(context.Context, *model.GetMyEntriesRequest) (*model.GetMyEntriesResponse, error)
	Allocate(context.Context, *model.AllocateRequest) (*model.AllocateResponse, error)
	CloseByOperator(context.Context, *model.CloseRaffleRequest) (*model.CloseRaffleResponse, error)
	Cancel(context.Context, *model.CancelRaffleRequest) (*model.CancelRaffleResponse, error)
	RequestDraw(context.Context, *model.RequestDrawRequest) (*model.RequestDrawResponse, error)
	Verify(context.Context, *model.VerifyRequest) (*model.VerifyResponse, error)
}

// RaffleSweeper contains the background operations of raffles.
type RaffleSweeper interface {
	Close(ctx context.Context, raffleID string, reason entity.CloseReason) (bool, error)
	CloseExpired(ctx context.Context) (int, error)
	DrawPending(ctx context.Context) (int, error)
	RecoverStuckDrawing(ctx context.Context) (int, error)
}

type raffleDomain struct {
	raffleRepo         repository.RaffleRepository
	entryRepo          repository.EntryRepository
	walletRepo         repository.WalletRepository
	globalRoleVerifier *common.GlobalRoleVerifier
	formula            draw.Formula
	redisClient        xredis.Client
	publisher          pubsub.Publisher
}

func NewRaffleDomain(
	raffleRepo repository.RaffleRepository,
	entryRepo repository.EntryRepository,
	walletRepo repository.WalletRepository,
	userRepo repository.UserRepository,
	formula draw.Formula,
	redisClient xredis.Client,
	publisher pubsub.Publisher,
) *raffleDomain {
	return &raffleDomain{
		raffleRepo:         raffleRepo,
		entryRepo:          entryRepo,
		walletRepo:         walletRepo,
		globalRoleVerifier: common.NewGlobalRoleVerifier(userRepo),
		formula:            formula,
		redisClient:        redisClient,
		publisher:          publisher,
	}
}

func (d *raffleDomain) Create(
	ctx context.Context, req *model.CreateRaffleRequest,
) (*model.CreateRaffleResponse, error) {
	if err := d.globalRoleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	if req.Title == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty title")
	}

	if req.TotalEntries <= 0 {
		return nil, errorx.New(errorx.BadRequest, "The number of entries must be a positive number")
	}

	if req.MaxEntriesPerUser < 0 {
		return nil, errorx.New(errorx.BadRequest, "The max entries per user must not be negative")
	}

	price, err := decimal.NewFromString(req.PricePerEntry)
	if err != nil || price.IsNegative() {
		return nil, errorx.New(errorx.BadRequest, "Invalid price per entry")
	}

	deadline := sql.NullTime{}
	if req.Deadline != "" {
		t, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest, "Invalid deadline")
		}

		if !t.After(time.Now()) {
			return nil, errorx.New(errorx.BadRequest, "Deadline must be in the future")
		}

		deadline = sql.NullTime{Time: t.UTC(), Valid: true}
	}

	raffle := &entity.Raffle{
		Base:              entity.Base{ID: uuid.NewString()},
		Title:             req.Title,
		TotalEntries:      req.TotalEntries,
		PricePerEntry:     price,
		MaxEntriesPerUser: req.MaxEntriesPerUser,
		Status:            entity.RaffleOpen,
		Deadline:          deadline,
		CreatedBy:         xcontext.RequestUserID(ctx),
	}

	if err := d.raffleRepo.Create(ctx, raffle); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateRaffleResponse{ID: raffle.ID}, nil
}

func (d *raffleDomain) Get(ctx context.Context, req *model.GetRaffleRequest) (*model.GetRaffleResponse, error) {
	raffle, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	return &model.GetRaffleResponse{Raffle: model.ConvertRaffle(raffle)}, nil
}

func (d *raffleDomain) GetList(
	ctx context.Context, req *model.GetRafflesRequest,
) (*model.GetRafflesResponse, error) {
	offset, limit, err := common.Pagination(ctx, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	filter := repository.GetListRaffleFilter{Offset: offset, Limit: limit}
	if req.Status != "" {
		status, err := enum.ToEnum[entity.RaffleStatus](req.Status)
		if err != nil {
			return nil, errorx.New(errorx.BadRequest,
				"Invalid status, expected one of %v", enum.Values[entity.RaffleStatus]())
		}

		filter.Status = []entity.RaffleStatus{status}
	}

	raffles, err := d.raffleRepo.GetList(ctx, filter)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle list: %v", err)
		return nil, errorx.Unknown
	}

	result := []model.Raffle{}
	for i := range raffles {
		result = append(result, model.ConvertRaffle(&raffles[i]))
	}

	return &model.GetRafflesResponse{Raffles: result}, nil
}

func (d *raffleDomain) GetEntries(
	ctx context.Context, req *model.GetEntriesRequest,
) (*model.GetEntriesResponse, error) {
	offset, limit, err := common.Pagination(ctx, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	if _, err := d.getRaffle(ctx, req.RaffleID); err != nil {
		return nil, err
	}

	entries, err := d.entryRepo.GetListByRaffleID(ctx, req.RaffleID, offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entries: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetEntriesResponse{Entries: convertEntries(entries)}, nil
}

func (d *raffleDomain) GetMyEntries(
	ctx context.Context, req *model.GetMyEntriesRequest,
) (*model.GetMyEntriesResponse, error) {
	if _, err := d.getRaffle(ctx, req.RaffleID); err != nil {
		return nil, err
	}

	entries, err := d.entryRepo.GetByOwner(ctx, req.RaffleID, xcontext.RequestUserID(ctx))
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get entries of user: %v", err)
		return nil, errorx.Unknown
	}

	return &model.GetMyEntriesResponse{Entries: convertEntries(entries)}, nil
}

func (d *raffleDomain) Cancel(
	ctx context.Context, req *model.CancelRaffleRequest,
) (*model.CancelRaffleResponse, error) {
	if err := d.globalRoleVerifier.Verify(ctx, entity.GlobalAdminRoles...); err != nil {
		return nil, errorx.New(errorx.PermissionDenied, "Permission denied")
	}

	raffle, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if err := d.raffleRepo.Cancel(ctx, raffle.ID, common.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.AlreadyDrawn, "Raffle is already finished")
		}

		xcontext.Logger(ctx).Errorf("Cannot cancel raffle: %v", err)
		return nil, errorx.Unknown
	}

	xcontext.Logger(ctx).Infof("Raffle %s is cancelled by %s", raffle.ID, xcontext.RequestUserID(ctx))
	d.publishEvent(ctx, model.RaffleEvent{
		Event:    model.RaffleCancelledEvent,
		RaffleID: raffle.ID,
		Status:   string(entity.RaffleCancelled),
		Reason:   "operator",
	})

	return &model.CancelRaffleResponse{}, nil
}

func (d *raffleDomain) getRaffle(ctx context.Context, raffleID string) (*entity.Raffle, error) {
	if raffleID == "" {
		return nil, errorx.New(errorx.BadRequest, "Not allow empty raffle id")
	}

	raffle, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	return raffle, nil
}

// publishEvent never fails the caller, the state change has already been
// committed when an event is published.
func (d *raffleDomain) publishEvent(ctx context.Context, event model.RaffleEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	b, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal raffle event: %v", err)
		return
	}

	topic := xcontext.Configs(ctx).Kafka.Topic
	err = d.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(event.RaffleID), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish event %s of raffle %s: %v", event.Event, event.RaffleID, err)
	}
}

func convertEntries(entries []entity.Entry) []model.Entry {
	result := []model.Entry{}
	for i := range entries {
		result = append(result, model.ConvertEntry(&entries[i]))
	}

	return result
}
