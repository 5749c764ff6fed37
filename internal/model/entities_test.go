package model

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestStakeJSONOmitsCloseFieldsWhileOpen(t *testing.T) {
	stake := Stake{
		ID:            "42",
		StakerAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		StakedHearts:  big.NewInt(1000000),
		StakedShares:  big.NewInt(2000000),
		LockDay:       1,
		StakedDays:    365,
	}

	data, err := json.Marshal(stake)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"unlock_day", "served_days", "penalty", "payout", "had_good_accounting"} {
		if _, ok := decoded[key]; ok {
			t.Fatalf("%s should be omitted for an open stake", key)
		}
	}
	if stake.Closed() {
		t.Fatalf("stake should be open")
	}

	unlock := int64(301)
	stake.UnlockDay = &unlock
	if !stake.Closed() {
		t.Fatalf("stake should be closed")
	}
}

func TestGlobalStateCountersOrder(t *testing.T) {
	state := NewGlobalState()
	for i, v := range state.Counters() {
		if v == nil || v.Sign() != 0 {
			t.Fatalf("counter %d should start at zero", i)
		}
	}

	values := make([]*big.Int, GlobalCounterCount)
	for i := range values {
		values[i] = big.NewInt(int64(i + 1))
	}
	state.SetCounters(values)

	if state.LockedHeartsTotal.Int64() != 1 {
		t.Fatalf("locked hearts mismatch: %s", state.LockedHeartsTotal)
	}
	if state.ShareRate.Int64() != 3 {
		t.Fatalf("share rate mismatch: %s", state.ShareRate)
	}
	if state.LobbyForDay.Int64() != 13 {
		t.Fatalf("lobby mismatch: %s", state.LobbyForDay)
	}

	// counters are copied, not aliased
	values[2].SetInt64(99)
	if state.ShareRate.Int64() != 3 {
		t.Fatalf("share rate aliased input slice")
	}
}

func TestCursorAfter(t *testing.T) {
	c := Cursor{BlockNumber: 100, LogIndex: 5}

	cases := []struct {
		block, index uint64
		want         bool
	}{
		{100, 5, false},
		{100, 4, false},
		{100, 6, true},
		{99, 10, false},
		{101, 0, true},
	}
	for _, tc := range cases {
		if got := c.After(tc.block, tc.index); got != tc.want {
			t.Fatalf("After(%d, %d) = %v, want %v", tc.block, tc.index, got, tc.want)
		}
	}
}
