// Package bitfield extracts fixed-offset values from packed little-endian blobs.
package bitfield

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrShortBuffer is returned when a range reaches past the end of the buffer.
var ErrShortBuffer = errors.New("buffer shorter than referenced range")

// Range is a half-open byte window [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the window width in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

func (r Range) check(buf []byte) error {
	if r.Start < 0 || r.End <= r.Start {
		return fmt.Errorf("invalid range %s", r)
	}
	if len(buf) < r.End {
		return fmt.Errorf("%w: need %d bytes for %s, have %d", ErrShortBuffer, r.End, r, len(buf))
	}
	return nil
}

// Require checks that buf covers every range.
func Require(buf []byte, ranges ...Range) error {
	for _, r := range ranges {
		if err := r.check(buf); err != nil {
			return err
		}
	}
	return nil
}

// Uint reads buf[r.Start:r.End] as a little-endian unsigned integer.
func Uint(buf []byte, r Range) (*big.Int, error) {
	if err := r.check(buf); err != nil {
		return nil, err
	}
	window := buf[r.Start:r.End]
	be := make([]byte, len(window))
	for i, b := range window {
		be[len(window)-1-i] = b
	}
	return new(big.Int).SetBytes(be), nil
}

// Uint64 reads a window of at most 8 bytes.
func Uint64(buf []byte, r Range) (uint64, error) {
	if r.Len() > 8 {
		return 0, fmt.Errorf("range %s wider than 8 bytes", r)
	}
	if err := r.check(buf); err != nil {
		return 0, err
	}
	var v uint64
	for i := r.End - 1; i >= r.Start; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v, nil
}

// Bool reports whether the window holds a non-zero value.
func Bool(buf []byte, r Range) (bool, error) {
	if err := r.check(buf); err != nil {
		return false, err
	}
	for _, b := range buf[r.Start:r.End] {
		if b != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Put writes the low r.Len() bytes of v into buf little-endian.
// It fails if v does not fit the window.
func Put(buf []byte, r Range, v *big.Int) error {
	if err := r.check(buf); err != nil {
		return err
	}
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative value for %s", r)
	}
	be := v.Bytes()
	if len(be) > r.Len() {
		return fmt.Errorf("value %s overflows %s", v, r)
	}
	for i := r.Start; i < r.End; i++ {
		buf[i] = 0
	}
	for i, b := range be {
		buf[r.Start+len(be)-1-i] = b
	}
	return nil
}
