package hex

// The contract hardcodes its launch time and cannot be upgraded.
const (
	LaunchTime    uint64 = 1575331200
	SecondsPerDay uint64 = 60 * 60 * 24
)

// DayNumber returns the contract day containing timestamp.
// Division truncates toward zero.
func DayNumber(timestamp uint64) int64 {
	return (int64(timestamp) - int64(LaunchTime)) / int64(SecondsPerDay)
}
