package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// WithRetry calls fn until it succeeds, doubling the delay after each failure.
func WithRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// ContractCaller performs eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RetryCaller retries failed eth_calls.
type RetryCaller struct {
	caller     ContractCaller
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewRetryCaller(caller ContractCaller, maxRetries int, backoff time.Duration, logger *zap.Logger) *RetryCaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryCaller{caller: caller, maxRetries: maxRetries, backoff: backoff, logger: logger}
}

func (r *RetryCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, r.maxRetries, r.backoff, func(ctx context.Context) error {
		var err error
		out, err = r.caller.CallContract(ctx, msg, blockNumber)
		if err != nil {
			r.logger.Warn("contract call failed", zap.Error(err), zap.Stringer("block_number", blockNumber))
		}
		return err
	})
	return out, err
}
