package service

import (
	"context"
	"time"

	"github.com/alexanderramin/multitimer/internal/alert"
	"github.com/alexanderramin/multitimer/internal/domain"
)

type TimerService interface {
	Add(ctx context.Context, label string, total time.Duration, start bool) (*domain.Timer, error)
	Edit(ctx context.Context, id int64, label *string, total *time.Duration) (*domain.Timer, error)
	Start(ctx context.Context, id int64) (*domain.Timer, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*domain.Timer, error)
	Get(ctx context.Context, id int64) (*domain.Timer, error)
	History(ctx context.Context, id int64, limit int) ([]*domain.TimerEvent, error)
}

// ActionRouter is the single entry point for Pause, Reset and Silence,
// whatever surface they come from. Unknown ids and repeated actions are
// no-ops.
type ActionRouter interface {
	Apply(ctx context.Context, id int64, action domain.Action, source domain.Source) error
}

// RearmResult summarises a boot re-arm.
type RearmResult struct {
	Finished []int64
	Armed    []int64
	Dropped  []int64
}

// Reconciler keeps stored timer state, wake alarms and in-process alerts
// consistent.
type Reconciler interface {
	// Tick finishes every running timer whose time is up and returns their ids.
	Tick(ctx context.Context) ([]int64, error)
	HandleWake(ctx context.Context, p domain.WakePayload) error
	Rearm(ctx context.Context) (*RearmResult, error)
	// SyncAlerts stops local alerts whose timer was deleted, reset or
	// silenced, possibly by another process.
	SyncAlerts(ctx context.Context) error
	HandleAlertEnd(ctx context.Context, req alert.Request, reason alert.EndReason)
}

// AlertController is the part of alert.Service the services drive.
type AlertController interface {
	Start(req alert.Request) bool
	Stop(id int64) bool
	ActiveIDs() []int64
}

var _ AlertController = (*alert.Service)(nil)
