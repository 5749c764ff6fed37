package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for projected entities.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.EntityStore = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Apply runs fn inside one database transaction.
func (s *Store) Apply(ctx context.Context, fn func(tx storage.EntityTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&entityTx{tx: tx})
	})
}

// LoadCursor returns the last applied position for name.
func (s *Store) LoadCursor(ctx context.Context, name string) (model.Cursor, bool, error) {
	if name == "" {
		return model.Cursor{}, false, fmt.Errorf("cursor name required")
	}
	var block, index int64
	row := s.pool.QueryRow(ctx, `SELECT block_number, log_index FROM indexer_cursor WHERE name=$1`, name)
	if err := row.Scan(&block, &index); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, err
	}
	return model.Cursor{BlockNumber: uint64(block), LogIndex: uint64(index)}, true, nil
}

type entityTx struct {
	tx pgx.Tx
}

func (t *entityTx) LoadStake(ctx context.Context, id string) (*model.Stake, bool, error) {
	var (
		stake                 model.Stake
		hearts, shares        string
		penalty, payout       *string
		lockDay, stakedDays   int64
		startBlock            int64
		unlockDay, servedDays *int64
		endBlock              *int64
	)
	row := t.tx.QueryRow(ctx, `
		SELECT id, staker_address, staked_hearts::text, staked_shares::text, lock_day, staked_days,
			is_auto_stake, start_block, unlock_day, served_days, penalty::text, payout::text,
			had_good_accounting, end_block
		FROM stakes WHERE id=$1
	`, id)
	err := row.Scan(
		&stake.ID, &stake.StakerAddress, &hearts, &shares, &lockDay, &stakedDays,
		&stake.IsAutoStake, &startBlock, &unlockDay, &servedDays, &penalty, &payout,
		&stake.HadGoodAccounting, &endBlock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	if stake.StakedHearts, err = parseInt(hearts); err != nil {
		return nil, false, err
	}
	if stake.StakedShares, err = parseInt(shares); err != nil {
		return nil, false, err
	}
	if stake.Penalty, err = parseOptInt(penalty); err != nil {
		return nil, false, err
	}
	if stake.Payout, err = parseOptInt(payout); err != nil {
		return nil, false, err
	}
	stake.LockDay = lockDay
	stake.StakedDays = uint64(stakedDays)
	stake.StartBlock = uint64(startBlock)
	stake.UnlockDay = unlockDay
	stake.ServedDays = optUint(servedDays)
	stake.EndBlock = optUint(endBlock)
	return &stake, true, nil
}

func (t *entityTx) SaveStake(ctx context.Context, stake *model.Stake) error {
	if stake == nil || stake.ID == "" {
		return fmt.Errorf("stake id required")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stakes (
			id, staker_address, staked_hearts, staked_shares, lock_day, staked_days, is_auto_stake,
			start_block, unlock_day, served_days, penalty, payout, had_good_accounting, end_block, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now())
		ON CONFLICT (id) DO UPDATE SET
			staker_address = EXCLUDED.staker_address,
			staked_hearts = EXCLUDED.staked_hearts,
			staked_shares = EXCLUDED.staked_shares,
			lock_day = EXCLUDED.lock_day,
			staked_days = EXCLUDED.staked_days,
			is_auto_stake = EXCLUDED.is_auto_stake,
			start_block = EXCLUDED.start_block,
			unlock_day = EXCLUDED.unlock_day,
			served_days = EXCLUDED.served_days,
			penalty = EXCLUDED.penalty,
			payout = EXCLUDED.payout,
			had_good_accounting = EXCLUDED.had_good_accounting,
			end_block = EXCLUDED.end_block,
			updated_at = now()
	`,
		stake.ID,
		stake.StakerAddress,
		numeric(stake.StakedHearts),
		numeric(stake.StakedShares),
		stake.LockDay,
		int64(stake.StakedDays),
		stake.IsAutoStake,
		int64(stake.StartBlock),
		stake.UnlockDay,
		optInt64(stake.ServedDays),
		numeric(stake.Penalty),
		numeric(stake.Payout),
		stake.HadGoodAccounting,
		optInt64(stake.EndBlock),
	)
	return err
}

func (t *entityTx) LoadStakeStart(ctx context.Context, id string) (*model.StakeStartRecord, bool, error) {
	var (
		rec                  model.StakeStartRecord
		hearts, shares       string
		days, block, blockTS int64
	)
	row := t.tx.QueryRow(ctx, `
		SELECT stake_id, staker_address, staked_hearts::text, staked_shares::text, staked_days,
			is_auto_stake, block_number, block_ts
		FROM stake_starts WHERE stake_id=$1
	`, id)
	err := row.Scan(&rec.StakeID, &rec.StakerAddress, &hearts, &shares, &days, &rec.IsAutoStake, &block, &blockTS)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if rec.StakedHearts, err = parseInt(hearts); err != nil {
		return nil, false, err
	}
	if rec.StakedShares, err = parseInt(shares); err != nil {
		return nil, false, err
	}
	rec.StakedDays = uint64(days)
	rec.BlockNumber = uint64(block)
	rec.Timestamp = uint64(blockTS)
	return &rec, true, nil
}

func (t *entityTx) CreateStakeStart(ctx context.Context, rec model.StakeStartRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stake_starts (
			stake_id, staker_address, staked_hearts, staked_shares, staked_days, is_auto_stake, block_number, block_ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		rec.StakeID,
		rec.StakerAddress,
		numeric(rec.StakedHearts),
		numeric(rec.StakedShares),
		int64(rec.StakedDays),
		rec.IsAutoStake,
		int64(rec.BlockNumber),
		int64(rec.Timestamp),
	)
	return err
}

func (t *entityTx) CreateStakeEnd(ctx context.Context, rec model.StakeEndRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO stake_ends (
			stake_id, staker_address, served_days, staked_hearts, staked_shares, payout, penalty,
			prev_unlocked, block_number, block_ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		rec.StakeID,
		rec.StakerAddress,
		int64(rec.ServedDays),
		numeric(rec.StakedHearts),
		numeric(rec.StakedShares),
		numeric(rec.Payout),
		numeric(rec.Penalty),
		rec.PrevUnlocked,
		int64(rec.BlockNumber),
		int64(rec.Timestamp),
	)
	return err
}

const globalColumns = `locked_hearts_total, next_stake_shares_total, share_rate, stake_penalty_total,
	daily_data_count, stake_shares_total, latest_stake_id, unclaimed_satoshis_total,
	claimed_satoshis_total, claimed_btc_addr_count, block_timestamp, total_supply, lobby_for_day`

func (t *entityTx) LoadGlobalState(ctx context.Context) (*model.GlobalState, bool, error) {
	texts := make([]string, model.GlobalCounterCount)
	dest := make([]interface{}, 0, model.GlobalCounterCount+1)
	for i := range texts {
		dest = append(dest, &texts[i])
	}
	var block int64
	dest = append(dest, &block)

	row := t.tx.QueryRow(ctx, `
		SELECT locked_hearts_total::text, next_stake_shares_total::text, share_rate::text,
			stake_penalty_total::text, daily_data_count::text, stake_shares_total::text,
			latest_stake_id::text, unclaimed_satoshis_total::text, claimed_satoshis_total::text,
			claimed_btc_addr_count::text, block_timestamp::text, total_supply::text,
			lobby_for_day::text, updated_block
		FROM global_state WHERE id=$1
	`, model.GlobalStateID)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	values := make([]*big.Int, 0, len(texts))
	for _, text := range texts {
		v, err := parseInt(text)
		if err != nil {
			return nil, false, err
		}
		values = append(values, v)
	}
	state := model.NewGlobalState()
	state.SetCounters(values)
	state.UpdatedBlock = uint64(block)
	return state, true, nil
}

func (t *entityTx) SaveGlobalState(ctx context.Context, state *model.GlobalState) error {
	if state == nil {
		return fmt.Errorf("global state is nil")
	}
	args := []interface{}{model.GlobalStateID}
	for _, v := range state.Counters() {
		args = append(args, numeric(v))
	}
	args = append(args, int64(state.UpdatedBlock))

	_, err := t.tx.Exec(ctx, `
		INSERT INTO global_state (id, `+globalColumns+`, updated_block, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
		ON CONFLICT (id) DO UPDATE SET
			locked_hearts_total = EXCLUDED.locked_hearts_total,
			next_stake_shares_total = EXCLUDED.next_stake_shares_total,
			share_rate = EXCLUDED.share_rate,
			stake_penalty_total = EXCLUDED.stake_penalty_total,
			daily_data_count = EXCLUDED.daily_data_count,
			stake_shares_total = EXCLUDED.stake_shares_total,
			latest_stake_id = EXCLUDED.latest_stake_id,
			unclaimed_satoshis_total = EXCLUDED.unclaimed_satoshis_total,
			claimed_satoshis_total = EXCLUDED.claimed_satoshis_total,
			claimed_btc_addr_count = EXCLUDED.claimed_btc_addr_count,
			block_timestamp = EXCLUDED.block_timestamp,
			total_supply = EXCLUDED.total_supply,
			lobby_for_day = EXCLUDED.lobby_for_day,
			updated_block = EXCLUDED.updated_block,
			updated_at = now()
	`, args...)
	return err
}

func (t *entityTx) SaveShareRateChange(ctx context.Context, change model.ShareRateChange) error {
	if change.ID == "" {
		return fmt.Errorf("share rate change id required")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO share_rate_changes (
			id, stake_id, old_share_rate, new_share_rate, difference, event_share_rate, block_number, day
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			stake_id = EXCLUDED.stake_id,
			old_share_rate = EXCLUDED.old_share_rate,
			new_share_rate = EXCLUDED.new_share_rate,
			difference = EXCLUDED.difference,
			event_share_rate = EXCLUDED.event_share_rate,
			block_number = EXCLUDED.block_number,
			day = EXCLUDED.day
	`,
		change.ID,
		change.StakeID,
		numeric(change.OldShareRate),
		numeric(change.NewShareRate),
		numeric(change.Difference),
		numeric(change.EventShareRate),
		int64(change.BlockNumber),
		change.Day,
	)
	return err
}

func (t *entityTx) SaveCursor(ctx context.Context, name string, cursor model.Cursor) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO indexer_cursor (name, block_number, log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = EXCLUDED.block_number, log_index = EXCLUDED.log_index, updated_at = now()
	`, name, int64(cursor.BlockNumber), int64(cursor.LogIndex))
	return err
}
