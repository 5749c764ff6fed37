package project

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stakeScope/internal/bitfield"
	"stakeScope/internal/hex"
	"stakeScope/internal/model"
	"stakeScope/internal/storage"
)

var (
	testContract = common.HexToAddress(hex.ContractAddress)
	testStaker   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
)

// fakeReader serves a scripted globalInfo vector per block.
type fakeReader struct {
	rates  map[uint64]int64
	calls  []uint64
	failAt uint64
}

func (f *fakeReader) GlobalInfo(_ context.Context, _ common.Address, block uint64) ([]*big.Int, error) {
	f.calls = append(f.calls, block)
	if f.failAt != 0 && f.failAt == block {
		return nil, context.DeadlineExceeded
	}
	out := make([]*big.Int, model.GlobalCounterCount)
	for i := range out {
		out[i] = big.NewInt(int64(1000*i) + int64(block))
	}
	out[2] = big.NewInt(f.rates[block])
	return out, nil
}

func (f *fakeReader) StakeCount(context.Context, common.Address, common.Address, uint64) (uint64, error) {
	return 0, nil
}

func (f *fakeReader) StakeListEntry(context.Context, common.Address, common.Address, uint64, uint64) (hex.StakeListEntry, error) {
	return hex.StakeListEntry{}, nil
}

func newTestProjector(t *testing.T, store storage.EntityStore, reader hex.ContractReader, policy RedundantPolicy) *Projector {
	t.Helper()
	builder, err := hex.NewBuilder(hex.SchemaPacked, nil, zap.NewNop())
	require.NoError(t, err)
	p, err := NewProjector(Config{OnRedundant: policy}, store, builder, reader, zap.NewNop())
	require.NoError(t, err)
	return p
}

func blob(t *testing.T, fields map[bitfield.Range]*big.Int) *big.Int {
	t.Helper()
	buf := make([]byte, hex.WordSize)
	for r, v := range fields {
		require.NoError(t, bitfield.Put(buf, r, v))
	}
	return hex.BlobToWord(buf)
}

func u(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func boolInt(v bool) *big.Int {
	if v {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}

func stakeStartLog(t *testing.T, stakeID, block, index, ts uint64, hearts, shares *big.Int, days uint64) model.LogRecord {
	t.Helper()
	word := blob(t, map[bitfield.Range]*big.Int{
		hex.StakeStartTimestamp:    u(ts),
		hex.StakeStartStakedHearts: hearts,
		hex.StakeStartStakedShares: shares,
		hex.StakeStartStakedDays:   u(days),
		hex.StakeStartIsAutoStake:  boolInt(false),
	})
	return packLog(t, hex.EventStakeStart, block, index, ts, []common.Hash{stakerTopic(), stakeIDTopic(stakeID)}, word)
}

func stakeEndLog(t *testing.T, stakeID, block, index, ts uint64, hearts, shares *big.Int, servedDays uint64, prevUnlocked bool) model.LogRecord {
	t.Helper()
	data0 := blob(t, map[bitfield.Range]*big.Int{
		hex.StakeEndTimestamp:    u(ts),
		hex.StakeEndStakedHearts: hearts,
		hex.StakeEndStakedShares: shares,
		hex.StakeEndPayout:       big.NewInt(1_200_000),
	})
	data1 := blob(t, map[bitfield.Range]*big.Int{
		hex.StakeEndPenalty:      big.NewInt(0),
		hex.StakeEndServedDays:   u(servedDays),
		hex.StakeEndPrevUnlocked: boolInt(prevUnlocked),
	})
	return packLog(t, hex.EventStakeEnd, block, index, ts, []common.Hash{stakerTopic(), stakeIDTopic(stakeID)}, data0, data1)
}

func shareRateChangeLog(t *testing.T, stakeID, block, index, ts uint64, rate *big.Int) model.LogRecord {
	t.Helper()
	word := blob(t, map[bitfield.Range]*big.Int{
		hex.ShareRateChangeTimestamp: u(ts),
		hex.ShareRateChangeShareRate: rate,
	})
	return packLog(t, hex.EventShareRateChange, block, index, ts, []common.Hash{stakeIDTopic(stakeID)}, word)
}

func packLog(t *testing.T, event string, block, index, ts uint64, indexed []common.Hash, words ...interface{}) model.LogRecord {
	t.Helper()
	parsed, err := hex.ContractABI()
	require.NoError(t, err)
	data, err := parsed.Events[event].Inputs.NonIndexed().Pack(words...)
	require.NoError(t, err)

	topics := []string{parsed.Events[event].ID.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     1,
		BlockNumber: block,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    index,
		Address:     testContract.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   ts,
	}
}

func stakerTopic() common.Hash {
	return common.BytesToHash(testStaker.Bytes())
}

func stakeIDTopic(id uint64) common.Hash {
	return common.BigToHash(u(id))
}
