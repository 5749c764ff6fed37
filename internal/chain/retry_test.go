package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
)

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryReturnsLastError(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := WithRetry(context.Background(), 2, time.Millisecond, func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithRetry(ctx, 5, time.Second, func(context.Context) error {
		return errors.New("down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type flakyCaller struct {
	failures int
	calls    int
}

func (f *flakyCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("timeout")
	}
	return []byte{0x01}, nil
}

func TestRetryCaller(t *testing.T) {
	inner := &flakyCaller{failures: 1}
	out, err := NewRetryCaller(inner, 2, time.Millisecond, nil).CallContract(context.Background(), ethereum.CallMsg{}, big.NewInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || inner.calls != 2 {
		t.Fatalf("unexpected result %v after %d calls", out, inner.calls)
	}
}
