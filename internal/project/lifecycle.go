package project

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

// Lifecycle moves stakes from open to closed.
type Lifecycle struct {
	logger *zap.Logger
}

func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{logger: logger}
}

// Open creates the stake for a start event. Replaying an identical start is a
// no-op; a conflicting one is rejected.
func (l *Lifecycle) Open(ctx context.Context, tx storage.EntityTx, rec model.StakeStartRecord) (*model.Stake, error) {
	if rec.StakeID == "" {
		return nil, fmt.Errorf("stake start without stake id")
	}

	prev, ok, err := tx.LoadStakeStart(ctx, rec.StakeID)
	if err != nil {
		return nil, fmt.Errorf("load stake start %s: %w", rec.StakeID, err)
	}
	if ok {
		if sameStart(*prev, rec) {
			l.logger.Debug("stake start replayed", zap.String("stake_id", rec.StakeID), zap.Uint64("block_number", rec.BlockNumber))
			stake, _, err := tx.LoadStake(ctx, rec.StakeID)
			return stake, err
		}
		return nil, &RedundantEventError{
			Event:   hex.EventStakeStart,
			StakeID: rec.StakeID,
			Reason:  fmt.Sprintf("stake already started at block %d with different fields", prev.BlockNumber),
		}
	}

	stake := &model.Stake{
		ID:            rec.StakeID,
		StakerAddress: rec.StakerAddress,
		StakedHearts:  rec.StakedHearts,
		StakedShares:  rec.StakedShares,
		LockDay:       hex.DayNumber(rec.Timestamp),
		StakedDays:    rec.StakedDays,
		IsAutoStake:   rec.IsAutoStake,
		StartBlock:    rec.BlockNumber,
	}
	if err := tx.CreateStakeStart(ctx, rec); err != nil {
		return nil, fmt.Errorf("create stake start %s: %w", rec.StakeID, err)
	}
	if err := tx.SaveStake(ctx, stake); err != nil {
		return nil, fmt.Errorf("save stake %s: %w", rec.StakeID, err)
	}
	return stake, nil
}

// Close applies an end event to an open stake.
func (l *Lifecycle) Close(ctx context.Context, tx storage.EntityTx, rec model.StakeEndRecord) (*model.Stake, error) {
	stake, ok, err := tx.LoadStake(ctx, rec.StakeID)
	if err != nil {
		return nil, fmt.Errorf("load stake %s: %w", rec.StakeID, err)
	}
	if !ok {
		return nil, &PreconditionError{
			Event:   hex.EventStakeEnd,
			StakeID: rec.StakeID,
			Note:    "no open stake found; upstream StakeStart ingestion likely failed",
		}
	}
	if stake.Closed() {
		return nil, &RedundantEventError{
			Event:   hex.EventStakeEnd,
			StakeID: rec.StakeID,
			Reason:  fmt.Sprintf("stake already closed at block %d", derefUint(stake.EndBlock)),
		}
	}

	if !sameInt(stake.StakedHearts, rec.StakedHearts) || !sameInt(stake.StakedShares, rec.StakedShares) {
		l.logger.Warn("stake end amounts differ from stake start",
			zap.String("stake_id", rec.StakeID),
			zap.Stringer("start_hearts", stake.StakedHearts),
			zap.Stringer("end_hearts", rec.StakedHearts),
			zap.Stringer("start_shares", stake.StakedShares),
			zap.Stringer("end_shares", rec.StakedShares),
		)
	}

	unlockDay := stake.LockDay + int64(rec.ServedDays)
	servedDays := rec.ServedDays
	goodAccounting := rec.PrevUnlocked
	endBlock := rec.BlockNumber
	stake.UnlockDay = &unlockDay
	stake.ServedDays = &servedDays
	stake.Penalty = rec.Penalty
	stake.Payout = rec.Payout
	stake.HadGoodAccounting = &goodAccounting
	stake.EndBlock = &endBlock

	if err := tx.CreateStakeEnd(ctx, rec); err != nil {
		return nil, fmt.Errorf("create stake end %s: %w", rec.StakeID, err)
	}
	if err := tx.SaveStake(ctx, stake); err != nil {
		return nil, fmt.Errorf("save stake %s: %w", rec.StakeID, err)
	}
	return stake, nil
}

func sameStart(a, b model.StakeStartRecord) bool {
	return a.StakerAddress == b.StakerAddress &&
		sameInt(a.StakedHearts, b.StakedHearts) &&
		sameInt(a.StakedShares, b.StakedShares) &&
		a.StakedDays == b.StakedDays &&
		a.IsAutoStake == b.IsAutoStake &&
		a.BlockNumber == b.BlockNumber
}
