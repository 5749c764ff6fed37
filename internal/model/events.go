package model

import "math/big"

// RawEvent is one contract log split into indexed params and packed blobs.
// Data0 and Data1 are little-endian; byte 0 holds the lowest bits of the word.
type RawEvent struct {
	EventName     string `json:"event_name"`
	Address       string `json:"address"`
	BlockNumber   uint64 `json:"block_number"`
	Timestamp     uint64 `json:"timestamp"`
	TxHash        string `json:"tx_hash"`
	LogIndex      uint64 `json:"log_index"`
	StakerAddress string `json:"staker_address,omitempty"`
	StakeID       uint64 `json:"stake_id"`
	Data0         []byte `json:"data0"`
	Data1         []byte `json:"data1,omitempty"`
}

// StakeStartRecord is the decoded StakeStart payload.
type StakeStartRecord struct {
	StakeID       string   `json:"stake_id"`
	StakerAddress string   `json:"staker_address"`
	StakedHearts  *big.Int `json:"staked_hearts"`
	StakedShares  *big.Int `json:"staked_shares"`
	StakedDays    uint64   `json:"staked_days"`
	IsAutoStake   bool     `json:"is_auto_stake"`
	BlockNumber   uint64   `json:"block_number"`
	Timestamp     uint64   `json:"timestamp"`
}

// StakeEndRecord is the decoded StakeEnd payload.
type StakeEndRecord struct {
	StakeID       string   `json:"stake_id"`
	StakerAddress string   `json:"staker_address"`
	ServedDays    uint64   `json:"served_days"`
	StakedHearts  *big.Int `json:"staked_hearts"`
	StakedShares  *big.Int `json:"staked_shares"`
	Payout        *big.Int `json:"payout"`
	Penalty       *big.Int `json:"penalty"`
	PrevUnlocked  bool     `json:"prev_unlocked"`
	BlockNumber   uint64   `json:"block_number"`
	Timestamp     uint64   `json:"timestamp"`
}

// ShareRateChangeRecord is the decoded ShareRateChange payload.
type ShareRateChangeRecord struct {
	StakeID     string   `json:"stake_id"`
	ShareRate   *big.Int `json:"share_rate"`
	BlockNumber uint64   `json:"block_number"`
	Timestamp   uint64   `json:"timestamp"`
}
