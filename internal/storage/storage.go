package storage

import (
	"context"

	"stakeScope/internal/model"
)

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// EntityTx reads and writes projected entities inside one transaction.
type EntityTx interface {
	LoadStake(ctx context.Context, id string) (*model.Stake, bool, error)
	SaveStake(ctx context.Context, stake *model.Stake) error
	LoadStakeStart(ctx context.Context, id string) (*model.StakeStartRecord, bool, error)
	CreateStakeStart(ctx context.Context, rec model.StakeStartRecord) error
	CreateStakeEnd(ctx context.Context, rec model.StakeEndRecord) error
	LoadGlobalState(ctx context.Context) (*model.GlobalState, bool, error)
	SaveGlobalState(ctx context.Context, state *model.GlobalState) error
	SaveShareRateChange(ctx context.Context, change model.ShareRateChange) error
	SaveCursor(ctx context.Context, name string, cursor model.Cursor) error
}

// EntityStore applies per-event changes atomically. If fn returns an error
// nothing it wrote is kept.
type EntityStore interface {
	Apply(ctx context.Context, fn func(tx EntityTx) error) error
	LoadCursor(ctx context.Context, name string) (model.Cursor, bool, error)
}
