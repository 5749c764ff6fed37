package hex

import "fmt"

// DecodeError reports a malformed or undersized event payload.
type DecodeError struct {
	Event   string
	StakeID uint64
	Field   string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s stake %d field %s: %v", e.Event, e.StakeID, e.Field, e.Err)
	}
	return fmt.Sprintf("decode %s stake %d: %v", e.Event, e.StakeID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
