package project

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

// GlobalAggregator keeps the GlobalState singleton in step with the contract.
type GlobalAggregator struct {
	reader hex.ContractReader
	logger *zap.Logger
}

func NewGlobalAggregator(reader hex.ContractReader, logger *zap.Logger) *GlobalAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GlobalAggregator{reader: reader, logger: logger}
}

// Refresh reads globalInfo() at block and overwrites every counter. It returns
// the state before and after the overwrite.
func (g *GlobalAggregator) Refresh(ctx context.Context, tx storage.EntityTx, contract common.Address, block uint64) (*model.GlobalState, *model.GlobalState, error) {
	if g.reader == nil {
		return nil, nil, fmt.Errorf("contract reader is nil")
	}
	prev, ok, err := tx.LoadGlobalState(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load global state: %w", err)
	}
	if !ok {
		prev = model.NewGlobalState()
	}

	values, err := g.reader.GlobalInfo(ctx, contract, block)
	if err != nil {
		return nil, nil, fmt.Errorf("read globalInfo at block %d: %w", block, err)
	}
	if len(values) != model.GlobalCounterCount {
		return nil, nil, fmt.Errorf("globalInfo returned %d values, want %d", len(values), model.GlobalCounterCount)
	}

	next := prev.Clone()
	next.SetCounters(values)
	next.UpdatedBlock = block
	if err := tx.SaveGlobalState(ctx, next); err != nil {
		return nil, nil, fmt.Errorf("save global state: %w", err)
	}
	return prev, next, nil
}

// ShareRateChange refreshes global state and records the share rate move.
// Records are keyed by stake id; a later change for the same stake replaces
// the earlier one.
func (g *GlobalAggregator) ShareRateChange(ctx context.Context, tx storage.EntityTx, contract common.Address, rec model.ShareRateChangeRecord) (model.ShareRateChange, error) {
	prev, next, err := g.Refresh(ctx, tx, contract, rec.BlockNumber)
	if err != nil {
		return model.ShareRateChange{}, err
	}

	oldRate := new(big.Int).Set(intOrZero(prev.ShareRate))
	newRate := new(big.Int).Set(intOrZero(next.ShareRate))
	if rec.ShareRate != nil && rec.ShareRate.Cmp(newRate) != 0 {
		g.logger.Warn("event share rate differs from contract",
			zap.String("stake_id", rec.StakeID),
			zap.Uint64("block_number", rec.BlockNumber),
			zap.Stringer("event_share_rate", rec.ShareRate),
			zap.Stringer("contract_share_rate", newRate),
		)
	}

	change := model.ShareRateChange{
		ID:           rec.StakeID,
		StakeID:      rec.StakeID,
		OldShareRate: oldRate,
		NewShareRate: newRate,
		Difference:   new(big.Int).Sub(newRate, oldRate),
		BlockNumber:  rec.BlockNumber,
		Day:          hex.DayNumber(rec.Timestamp),
	}
	if rec.ShareRate != nil {
		change.EventShareRate = new(big.Int).Set(rec.ShareRate)
	}
	if err := tx.SaveShareRateChange(ctx, change); err != nil {
		return model.ShareRateChange{}, fmt.Errorf("save share rate change %s: %w", change.ID, err)
	}
	return change, nil
}
