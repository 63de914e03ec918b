package cron

import (
	"context"
	"time"

	"github.com/rafflehub/backend/internal/domain"
	"github.com/rafflehub/backend/pkg/xcontext"
)

// CloseRaffleCronJob closes open raffles which are sold out or passed their
// deadline.
type CloseRaffleCronJob struct {
	sweeper  domain.RaffleSweeper
	interval time.Duration
}

func NewCloseRaffleCronJob(sweeper domain.RaffleSweeper, interval time.Duration) *CloseRaffleCronJob {
	return &CloseRaffleCronJob{sweeper: sweeper, interval: interval}
}

func (job *CloseRaffleCronJob) Name() string {
	return "close_raffle"
}

func (job *CloseRaffleCronJob) Do(ctx context.Context) {
	n, err := job.sweeper.CloseExpired(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot close expired raffles: %v", err)
		return
	}

	if n > 0 {
		xcontext.Logger(ctx).Infof("Closed %d raffles", n)
	}
}

func (job *CloseRaffleCronJob) RunNow() bool {
	return true
}

func (job *CloseRaffleCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}

// PendingDrawCronJob draws closing raffles whose countdown has elapsed and
// nobody has requested the draw yet.
type PendingDrawCronJob struct {
	sweeper  domain.RaffleSweeper
	interval time.Duration
}

func NewPendingDrawCronJob(sweeper domain.RaffleSweeper, interval time.Duration) *PendingDrawCronJob {
	return &PendingDrawCronJob{sweeper: sweeper, interval: interval}
}

func (job *PendingDrawCronJob) Name() string {
	return "pending_draw"
}

func (job *PendingDrawCronJob) Do(ctx context.Context) {
	n, err := job.sweeper.DrawPending(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot draw pending raffles: %v", err)
		return
	}

	if n > 0 {
		xcontext.Logger(ctx).Infof("Drew %d pending raffles", n)
	}
}

func (job *PendingDrawCronJob) RunNow() bool {
	return true
}

func (job *PendingDrawCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}

// StuckDrawingCronJob rolls back raffles which stay in drawing longer than
// the drawing timeout.
type StuckDrawingCronJob struct {
	sweeper  domain.RaffleSweeper
	interval time.Duration
}

func NewStuckDrawingCronJob(sweeper domain.RaffleSweeper, interval time.Duration) *StuckDrawingCronJob {
	return &StuckDrawingCronJob{sweeper: sweeper, interval: interval}
}

func (job *StuckDrawingCronJob) Name() string {
	return "stuck_drawing"
}

func (job *StuckDrawingCronJob) Do(ctx context.Context) {
	n, err := job.sweeper.RecoverStuckDrawing(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot recover stuck raffles: %v", err)
		return
	}

	if n > 0 {
		xcontext.Logger(ctx).Warnf("Recovered %d raffles stuck in drawing", n)
	}
}

func (job *StuckDrawingCronJob) RunNow() bool {
	return false
}

func (job *StuckDrawingCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
