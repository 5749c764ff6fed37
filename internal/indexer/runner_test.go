package indexer

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"stakeScope/internal/hex"
	"stakeScope/internal/model"
)

type fakeSource struct {
	chainID uint64
	latest  uint64
	logs    []types.Log
	queries [][2]uint64
}

func (f *fakeSource) GetChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return hex.LaunchTime + number, nil
}

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.queries = append(f.queries, [2]uint64{from, to})
	var out []types.Log
	// returned newest first to exercise ordering
	for i := len(f.logs) - 1; i >= 0; i-- {
		if f.logs[i].BlockNumber >= from && f.logs[i].BlockNumber <= to {
			out = append(out, f.logs[i])
		}
	}
	return out, nil
}

type memorySink struct {
	records []model.LogRecord
}

func (m *memorySink) PutLogBatch(logs []model.LogRecord) error {
	m.records = append(m.records, logs...)
	return nil
}

func testLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     common.HexToAddress(hex.ContractAddress),
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Data:        []byte{0x01},
	}
}

func TestRunnerWritesOrderedLogsAndResumes(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	source := &fakeSource{
		chainID: 1,
		latest:  20,
		logs:    []types.Log{testLog(10, 0), testLog(10, 4), testLog(15, 1)},
	}
	cfg := RunConfig{
		FromBlock:         10,
		Addresses:         []common.Address{common.HexToAddress(hex.ContractAddress)},
		BatchSize:         10,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		RetryBackoff:      time.Millisecond,
	}
	sink := &memorySink{}

	if err := NewRunner(cfg, source, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(sink.records))
	}
	for i := 1; i < len(sink.records); i++ {
		prev, cur := sink.records[i-1], sink.records[i]
		if cur.BlockNumber < prev.BlockNumber || (cur.BlockNumber == prev.BlockNumber && cur.LogIndex <= prev.LogIndex) {
			t.Fatalf("records out of order at %d: %+v then %+v", i, prev, cur)
		}
	}
	if sink.records[0].Timestamp != hex.LaunchTime+10 {
		t.Fatalf("unexpected timestamp: %d", sink.records[0].Timestamp)
	}

	cp, ok, err := NewCheckpointStore(checkpoint, true).Load()
	if err != nil || !ok {
		t.Fatalf("load checkpoint: %v %v", ok, err)
	}
	if cp.LastProcessedBlock != 20 || cp.LogCount != 3 || cp.ChainID != 1 {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}

	source.latest = 25
	source.queries = nil
	if err := NewRunner(cfg, source, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(source.queries) != 1 || source.queries[0] != [2]uint64{21, 25} {
		t.Fatalf("unexpected resume queries: %v", source.queries)
	}
}

func TestRunnerRejectsForeignCheckpoint(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := NewCheckpointStore(checkpoint, true).Save(Checkpoint{LastProcessedBlock: 5, ChainID: 369}); err != nil {
		t.Fatalf("save: %v", err)
	}
	cfg := RunConfig{
		Addresses:         []common.Address{common.HexToAddress(hex.ContractAddress)},
		BatchSize:         10,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
	}
	err := NewRunner(cfg, &fakeSource{chainID: 1, latest: 10}, &memorySink{}, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected chain id mismatch error")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"), false)
	if err := store.Save(Checkpoint{LastProcessedBlock: 9}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("disabled store must not load: %v %v", ok, err)
	}
}
