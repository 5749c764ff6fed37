package project

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

func writeLogs(t *testing.T, logs ...model.LogRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs.jsonl")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	enc := json.NewEncoder(file)
	for _, log := range logs {
		require.NoError(t, enc.Encode(log))
	}
	return path
}

func lifecycleLogs(t *testing.T) []model.LogRecord {
	hearts, shares := big.NewInt(1_000_000), big.NewInt(2_000_000)
	return []model.LogRecord{
		stakeStartLog(t, 42, 100, 0, hex.LaunchTime+86400, hearts, shares, 365),
		shareRateChangeLog(t, 42, 100, 1, hex.LaunchTime+86400, big.NewInt(90000)),
		stakeEndLog(t, 42, 200, 3, hex.LaunchTime+301*86400, hearts, shares, 300, true),
	}
}

func TestProjectorRunAppliesLifecycle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	reader := &fakeReader{rates: map[uint64]int64{100: 90000}}
	p := newTestProjector(t, store, reader, RedundantSkip)

	removed := lifecycleLogs(t)[0]
	removed.Removed = true
	foreign := lifecycleLogs(t)[0]
	foreign.Topics[0] = "0x1111111111111111111111111111111111111111111111111111111111111111"
	path := writeLogs(t, append(lifecycleLogs(t), removed, foreign)...)

	stats, err := p.Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.Applied)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, model.Cursor{BlockNumber: 200, LogIndex: 3}, stats.Cursor)

	stake, ok := store.Stake("42")
	require.True(t, ok)
	assert.Equal(t, int64(1), stake.LockDay)
	assert.Equal(t, uint64(365), stake.StakedDays)
	assert.False(t, stake.IsAutoStake)
	assert.Equal(t, int64(301), *stake.UnlockDay)
	assert.True(t, *stake.HadGoodAccounting)

	change, ok := store.ShareRateChange("42")
	require.True(t, ok)
	assert.Equal(t, int64(90000), change.Difference.Int64())
	assert.Equal(t, int64(1), change.Day)

	cursor, ok, err := store.LoadCursor(ctx, DefaultCursorName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Cursor{BlockNumber: 200, LogIndex: 3}, cursor)
}

func TestProjectorRunResumesFromCursor(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	reader := &fakeReader{rates: map[uint64]int64{100: 90000}}
	path := writeLogs(t, lifecycleLogs(t)...)

	_, err := newTestProjector(t, store, reader, RedundantSkip).Run(ctx, path)
	require.NoError(t, err)
	require.Len(t, reader.calls, 1)

	stats, err := newTestProjector(t, store, reader, RedundantSkip).Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Applied)
	assert.Equal(t, 3, stats.Replayed)
	assert.Len(t, reader.calls, 1, "replayed logs must not hit the contract")
}

func TestProjectorRedundantEndPolicy(t *testing.T) {
	hearts, shares := big.NewInt(1_000_000), big.NewInt(2_000_000)
	logs := []model.LogRecord{
		stakeStartLog(t, 42, 100, 0, hex.LaunchTime+86400, hearts, shares, 365),
		stakeEndLog(t, 42, 200, 0, hex.LaunchTime+301*86400, hearts, shares, 300, true),
		stakeEndLog(t, 42, 201, 0, hex.LaunchTime+302*86400, hearts, shares, 5, false),
	}

	t.Run("skip", func(t *testing.T) {
		ctx := context.Background()
		store := storage.NewMemoryStore()
		stats, err := newTestProjector(t, store, &fakeReader{}, RedundantSkip).Run(ctx, writeLogs(t, logs...))
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Applied)
		assert.Equal(t, 1, stats.Redundant)

		stake, _ := store.Stake("42")
		assert.Equal(t, int64(301), *stake.UnlockDay)
		cursor, _, err := store.LoadCursor(ctx, DefaultCursorName)
		require.NoError(t, err)
		assert.Equal(t, uint64(201), cursor.BlockNumber)
	})

	t.Run("fail", func(t *testing.T) {
		ctx := context.Background()
		store := storage.NewMemoryStore()
		_, err := newTestProjector(t, store, &fakeReader{}, RedundantFail).Run(ctx, writeLogs(t, logs...))
		var redundant *RedundantEventError
		require.True(t, errors.As(err, &redundant))

		cursor, _, err := store.LoadCursor(ctx, DefaultCursorName)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), cursor.BlockNumber)
	})
}

func TestProjectorStopsOnMissingStart(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	hearts, shares := big.NewInt(1), big.NewInt(1)
	path := writeLogs(t,
		stakeEndLog(t, 99, 50, 0, hex.LaunchTime+86400, hearts, shares, 1, false),
		stakeStartLog(t, 100, 60, 0, hex.LaunchTime+86400, hearts, shares, 10),
	)

	stats, err := newTestProjector(t, store, &fakeReader{}, RedundantSkip).Run(ctx, path)
	var precondition *PreconditionError
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, "99", precondition.StakeID)
	assert.Equal(t, 0, stats.Applied)

	assert.Equal(t, 0, store.Counts()["stakes"])
	_, ok, err := store.LoadCursor(ctx, DefaultCursorName)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProjectorStopsOnDecodeFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	broken := lifecycleLogs(t)[0]
	broken.Data = "0x01"

	_, err := newTestProjector(t, store, &fakeReader{}, RedundantSkip).Run(ctx, writeLogs(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode log block=100")
	assert.Equal(t, 0, store.Counts()["stakes"])
}

func TestParseRedundantPolicy(t *testing.T) {
	policy, err := ParseRedundantPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RedundantSkip, policy)

	policy, err = ParseRedundantPolicy("FAIL")
	require.NoError(t, err)
	assert.Equal(t, RedundantFail, policy)

	_, err = ParseRedundantPolicy("overwrite")
	assert.Error(t, err)
}
