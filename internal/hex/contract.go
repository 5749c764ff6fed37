package hex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"stakeScope/internal/model"
)

// StakeListEntry is one row of the contract's per-staker stake list.
type StakeListEntry struct {
	StakeID      uint64
	StakedHearts *big.Int
	StakedShares *big.Int
	LockDay      int32
	StakedDays   int32
	UnlockDay    int32
	IsAutoStake  bool
}

// ContractReader reads contract state at a block height.
type ContractReader interface {
	GlobalInfo(ctx context.Context, contract common.Address, block uint64) ([]*big.Int, error)
	StakeCount(ctx context.Context, contract, staker common.Address, block uint64) (uint64, error)
	StakeListEntry(ctx context.Context, contract, staker common.Address, index uint64, block uint64) (StakeListEntry, error)
}

// Caller performs eth_call. *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainReader implements ContractReader over JSON-RPC.
type ChainReader struct {
	caller Caller
}

// NewChainReader returns a ContractReader backed by caller.
func NewChainReader(caller Caller) *ChainReader {
	return &ChainReader{caller: caller}
}

// GlobalInfo returns the 13-element globalInfo() vector.
func (r *ChainReader) GlobalInfo(ctx context.Context, contract common.Address, block uint64) ([]*big.Int, error) {
	values, err := r.call(ctx, contract, "globalInfo", block)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected globalInfo values: %d", len(values))
	}
	vector, ok := values[0].([model.GlobalCounterCount]*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported globalInfo type %T", values[0])
	}
	out := make([]*big.Int, 0, len(vector))
	for _, v := range vector {
		out = append(out, new(big.Int).Set(v))
	}
	return out, nil
}

// StakeCount returns the length of the staker's stake list.
func (r *ChainReader) StakeCount(ctx context.Context, contract, staker common.Address, block uint64) (uint64, error) {
	values, err := r.call(ctx, contract, "stakeCount", block, staker)
	if err != nil {
		return 0, err
	}
	if len(values) != 1 {
		return 0, fmt.Errorf("unexpected stakeCount values: %d", len(values))
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("stakeCount: %w", err)
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("stake count overflow: %s", count)
	}
	return count.Uint64(), nil
}

// StakeListEntry returns stakeLists(staker, index).
func (r *ChainReader) StakeListEntry(ctx context.Context, contract, staker common.Address, index uint64, block uint64) (StakeListEntry, error) {
	values, err := r.call(ctx, contract, "stakeLists", block, staker, new(big.Int).SetUint64(index))
	if err != nil {
		return StakeListEntry{}, err
	}
	if len(values) != 7 {
		return StakeListEntry{}, fmt.Errorf("unexpected stakeLists values: %d", len(values))
	}

	stakeID, err := asBigInt(values[0])
	if err != nil {
		return StakeListEntry{}, fmt.Errorf("stakeId: %w", err)
	}
	hearts, err := asBigInt(values[1])
	if err != nil {
		return StakeListEntry{}, fmt.Errorf("stakedHearts: %w", err)
	}
	shares, err := asBigInt(values[2])
	if err != nil {
		return StakeListEntry{}, fmt.Errorf("stakeShares: %w", err)
	}
	days := make([]int32, 3)
	for i := range days {
		v, err := asBigInt(values[3+i])
		if err != nil {
			return StakeListEntry{}, fmt.Errorf("day field %d: %w", i, err)
		}
		days[i] = int32(v.Int64())
	}
	auto, ok := values[6].(bool)
	if !ok {
		return StakeListEntry{}, fmt.Errorf("unsupported bool type %T", values[6])
	}

	return StakeListEntry{
		StakeID:      stakeID.Uint64(),
		StakedHearts: hearts,
		StakedShares: shares,
		LockDay:      days[0],
		StakedDays:   days[1],
		UnlockDay:    days[2],
		IsAutoStake:  auto,
	}, nil
}

func (r *ChainReader) call(ctx context.Context, contract common.Address, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	if r == nil || r.caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := ContractABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	return callMethod(ctx, r.caller, contract, parsed, method, block, args...)
}

func callMethod(ctx context.Context, caller Caller, contract common.Address, parsed abi.ABI, method string, block uint64, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := caller.CallContract(ctx, msg, blockPtr)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
