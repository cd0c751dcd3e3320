// Package rpcutil implements the hex JSON-RPC wire format: hexutil-based
// encodings for the built-in width types, plus a
// uint256-aware wrapper for fields that are conceptually wider than 64
// bits even though the wire still represents them as a 0x-prefixed
// big-endian hex string (the same convention hexutil.Big uses).
package rpcutil

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// U256 marshals a *uint256.Int as a 0x-prefixed hex string, matching
// hexutil.Big's wire format for values go-ethereum's own types can't
// represent natively.
type U256 struct {
	uint256.Int
}

// NewU256 wraps v for JSON marshalling.
func NewU256(v *uint256.Int) *U256 {
	if v == nil {
		return nil
	}
	return &U256{Int: *v}
}

// Value returns the wrapped *uint256.Int.
func (u *U256) Value() *uint256.Int {
	if u == nil {
		return nil
	}
	v := u.Int
	return &v
}

func (u U256) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.EncodeBig(u.Int.ToBig()))
}

func (u *U256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	big, err := hexutil.DecodeBig(s)
	if err != nil {
		return err
	}
	v, overflow := uint256.FromBig(big)
	if overflow {
		return hexutil.ErrBig256Range
	}
	u.Int = *v
	return nil
}
