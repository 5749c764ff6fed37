package postgres

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
)

// numeric maps a nil value to SQL NULL.
func numeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Valid: true}
}

func parseInt(text string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric %q", text)
	}
	return v, nil
}

func parseOptInt(text *string) (*big.Int, error) {
	if text == nil {
		return nil, nil
	}
	return parseInt(*text)
}

func optInt64(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}

func optUint(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	out := uint64(*v)
	return &out
}
