package model

import "math/big"

// GlobalStateID keys the single GlobalState row.
const GlobalStateID = "global"

// Stake is the projected state of one stake. Close fields stay nil while open.
type Stake struct {
	ID                string   `json:"id"`
	StakerAddress     string   `json:"staker_address"`
	StakedHearts      *big.Int `json:"staked_hearts"`
	StakedShares      *big.Int `json:"staked_shares"`
	LockDay           int64    `json:"lock_day"`
	StakedDays        uint64   `json:"staked_days"`
	IsAutoStake       bool     `json:"is_auto_stake"`
	StartBlock        uint64   `json:"start_block"`
	UnlockDay         *int64   `json:"unlock_day,omitempty"`
	ServedDays        *uint64  `json:"served_days,omitempty"`
	Penalty           *big.Int `json:"penalty,omitempty"`
	Payout            *big.Int `json:"payout,omitempty"`
	HadGoodAccounting *bool    `json:"had_good_accounting,omitempty"`
	EndBlock          *uint64  `json:"end_block,omitempty"`
}

// Closed reports whether the matching end event has been applied.
func (s *Stake) Closed() bool {
	return s.UnlockDay != nil
}

// GlobalState mirrors the contract's globalInfo() vector.
type GlobalState struct {
	ID                     string   `json:"id"`
	LockedHeartsTotal      *big.Int `json:"locked_hearts_total"`
	NextStakeSharesTotal   *big.Int `json:"next_stake_shares_total"`
	ShareRate              *big.Int `json:"share_rate"`
	StakePenaltyTotal      *big.Int `json:"stake_penalty_total"`
	DailyDataCount         *big.Int `json:"daily_data_count"`
	StakeSharesTotal       *big.Int `json:"stake_shares_total"`
	LatestStakeID          *big.Int `json:"latest_stake_id"`
	UnclaimedSatoshisTotal *big.Int `json:"unclaimed_satoshis_total"`
	ClaimedSatoshisTotal   *big.Int `json:"claimed_satoshis_total"`
	ClaimedBtcAddrCount    *big.Int `json:"claimed_btc_addr_count"`
	BlockTimestamp         *big.Int `json:"block_timestamp"`
	TotalSupply            *big.Int `json:"total_supply"`
	LobbyForDay            *big.Int `json:"lobby_for_day"`
	UpdatedBlock           uint64   `json:"updated_block"`
}

// GlobalCounterCount is the length of the globalInfo() vector.
const GlobalCounterCount = 13

// NewGlobalState returns the zeroed singleton.
func NewGlobalState() *GlobalState {
	g := &GlobalState{ID: GlobalStateID}
	for _, p := range g.counters() {
		*p = new(big.Int)
	}
	return g
}

// SetCounters overwrites every counter from the contract vector, in order.
func (g *GlobalState) SetCounters(values []*big.Int) {
	for i, p := range g.counters() {
		v := new(big.Int)
		if i < len(values) && values[i] != nil {
			v.Set(values[i])
		}
		*p = v
	}
}

// Counters returns the counters in contract order.
func (g *GlobalState) Counters() []*big.Int {
	ptrs := g.counters()
	out := make([]*big.Int, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

func (g *GlobalState) counters() [GlobalCounterCount]**big.Int {
	return [GlobalCounterCount]**big.Int{
		&g.LockedHeartsTotal,
		&g.NextStakeSharesTotal,
		&g.ShareRate,
		&g.StakePenaltyTotal,
		&g.DailyDataCount,
		&g.StakeSharesTotal,
		&g.LatestStakeID,
		&g.UnclaimedSatoshisTotal,
		&g.ClaimedSatoshisTotal,
		&g.ClaimedBtcAddrCount,
		&g.BlockTimestamp,
		&g.TotalSupply,
		&g.LobbyForDay,
	}
}

// ShareRateChange records one share rate move, keyed by the triggering stake.
type ShareRateChange struct {
	ID             string   `json:"id"`
	StakeID        string   `json:"stake_id"`
	OldShareRate   *big.Int `json:"old_share_rate"`
	NewShareRate   *big.Int `json:"new_share_rate"`
	Difference     *big.Int `json:"difference"`
	EventShareRate *big.Int `json:"event_share_rate,omitempty"`
	BlockNumber    uint64   `json:"block_number"`
	Day            int64    `json:"day"`
}

// Cursor marks the last log applied to a store.
type Cursor struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
}

// After reports whether a log at (block, index) comes after the cursor.
func (c Cursor) After(block, index uint64) bool {
	if block != c.BlockNumber {
		return block > c.BlockNumber
	}
	return index > c.LogIndex
}

// Clone returns a deep copy.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	out := *s
	out.StakedHearts = cloneInt(s.StakedHearts)
	out.StakedShares = cloneInt(s.StakedShares)
	out.Penalty = cloneInt(s.Penalty)
	out.Payout = cloneInt(s.Payout)
	if s.UnlockDay != nil {
		v := *s.UnlockDay
		out.UnlockDay = &v
	}
	if s.ServedDays != nil {
		v := *s.ServedDays
		out.ServedDays = &v
	}
	if s.HadGoodAccounting != nil {
		v := *s.HadGoodAccounting
		out.HadGoodAccounting = &v
	}
	if s.EndBlock != nil {
		v := *s.EndBlock
		out.EndBlock = &v
	}
	return &out
}

// Clone returns a deep copy.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	out := &GlobalState{ID: g.ID, UpdatedBlock: g.UpdatedBlock}
	out.SetCounters(g.Counters())
	return out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
