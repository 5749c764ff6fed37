package hex

import "stakeScope/internal/bitfield"

// WordSize is the byte length of one packed data word.
const WordSize = 32

// StakeStart data0.
var (
	StakeStartTimestamp    = bitfield.Range{Start: 0, End: 5}
	StakeStartStakedHearts = bitfield.Range{Start: 5, End: 14}
	StakeStartStakedShares = bitfield.Range{Start: 14, End: 23}
	StakeStartStakedDays   = bitfield.Range{Start: 23, End: 25}
	StakeStartIsAutoStake  = bitfield.Range{Start: 25, End: 26}
)

// StakeEnd data0.
var (
	StakeEndTimestamp    = bitfield.Range{Start: 0, End: 5}
	StakeEndStakedHearts = bitfield.Range{Start: 5, End: 14}
	StakeEndStakedShares = bitfield.Range{Start: 14, End: 23}
	StakeEndPayout       = bitfield.Range{Start: 23, End: 32}
)

// StakeEnd data1.
var (
	StakeEndPenalty      = bitfield.Range{Start: 0, End: 9}
	StakeEndServedDays   = bitfield.Range{Start: 9, End: 11}
	StakeEndPrevUnlocked = bitfield.Range{Start: 11, End: 12}
)

// ShareRateChange data0.
var (
	ShareRateChangeTimestamp = bitfield.Range{Start: 0, End: 5}
	ShareRateChangeShareRate = bitfield.Range{Start: 5, End: 10}
)
