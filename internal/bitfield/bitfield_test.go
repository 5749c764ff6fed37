package bitfield

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUintLittleEndian(t *testing.T) {
	buf := []byte{0xff, 0x01, 0x02, 0x03, 0x00}

	v, err := Uint(buf, Range{Start: 1, End: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(0x030201), v.Int64())

	v, err = Uint(buf, Range{Start: 0, End: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(0xff), v.Int64())
}

func TestUintWide(t *testing.T) {
	// 9 bytes of 0xff is 2^72-1, which a machine word cannot hold.
	buf := make([]byte, 14)
	for i := 5; i < 14; i++ {
		buf[i] = 0xff
	}

	v, err := Uint(buf, Range{Start: 5, End: 14})
	require.NoError(t, err)

	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 72), big.NewInt(1))
	assert.Equal(t, 0, want.Cmp(v), "got %s", v)
}

func TestUintDistinctPatterns(t *testing.T) {
	r := Range{Start: 0, End: 2}
	seen := make(map[string]struct{})
	for hi := 0; hi < 256; hi += 17 {
		for lo := 0; lo < 256; lo += 13 {
			v, err := Uint([]byte{byte(lo), byte(hi)}, r)
			require.NoError(t, err)
			key := v.String()
			_, dup := seen[key]
			require.False(t, dup, "pattern %02x%02x collided", hi, lo)
			seen[key] = struct{}{}
			assert.Equal(t, int64(hi<<8|lo), v.Int64())
		}
	}
}

func TestUint64(t *testing.T) {
	v, err := Uint64([]byte{0x6d, 0x01}, Range{Start: 0, End: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(365), v)

	_, err = Uint64(make([]byte, 16), Range{Start: 0, End: 9})
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	buf := []byte{0x00, 0x01}

	v, err := Bool(buf, Range{Start: 0, End: 1})
	require.NoError(t, err)
	assert.False(t, v)

	v, err = Bool(buf, Range{Start: 1, End: 2})
	require.NoError(t, err)
	assert.True(t, v)
}

func TestShortBuffer(t *testing.T) {
	buf := make([]byte, 10)

	_, err := Uint(buf, Range{Start: 5, End: 14})
	assert.True(t, errors.Is(err, ErrShortBuffer))

	_, err = Bool(buf, Range{Start: 10, End: 11})
	assert.True(t, errors.Is(err, ErrShortBuffer))

	err = Require(buf, Range{Start: 0, End: 5}, Range{Start: 9, End: 11})
	assert.True(t, errors.Is(err, ErrShortBuffer))

	assert.NoError(t, Require(buf, Range{Start: 0, End: 10}))
}

func TestInvalidRange(t *testing.T) {
	_, err := Uint(make([]byte, 4), Range{Start: 2, End: 2})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrShortBuffer))
}

func TestPutRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	r := Range{Start: 14, End: 23}
	want, _ := new(big.Int).SetString("4722366482869645213695", 10) // 2^72-1

	require.NoError(t, Put(buf, r, want))
	got, err := Uint(buf, r)
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(got))

	for i := 0; i < 14; i++ {
		assert.Zero(t, buf[i])
	}

	overflow := new(big.Int).Lsh(big.NewInt(1), 72)
	assert.Error(t, Put(buf, r, overflow))
	assert.Error(t, Put(buf, r, big.NewInt(-1)))
}
