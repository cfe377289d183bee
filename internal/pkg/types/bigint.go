package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// BigInt is an arbitrary-precision integer that marshals to a decimal JSON
// string. Chain values (token amounts, gas prices) routinely exceed 64 bits,
// so all numeric transaction and parameter fields use this type end to end.
type BigInt struct {
	i big.Int
}

// BigIntFromString parses a decimal or 0x-prefixed hexadecimal string into a
// BigInt.
func BigIntFromString(s string) (BigInt, error) {
	v, ok := parseBigInt(s)
	if !ok {
		return BigInt{}, fmt.Errorf("invalid integer literal: %q", s)
	}
	return BigInt{i: *v}, nil
}

// BigIntFromUint64 converts n into a BigInt.
func BigIntFromUint64(n uint64) BigInt {
	var v big.Int
	v.SetUint64(n)
	return BigInt{i: v}
}

// parseBigInt accepts decimal and 0x/0X-prefixed hexadecimal forms.
func parseBigInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// Int returns a copy of the underlying big.Int value.
func (b BigInt) Int() *big.Int {
	return new(big.Int).Set(&b.i)
}

// Cmp compares b and other, returning -1, 0 or +1.
func (b BigInt) Cmp(other BigInt) int {
	return b.i.Cmp(&other.i)
}

// String renders the value in decimal form.
func (b BigInt) String() string {
	return b.i.String()
}

// MarshalJSON encodes the value as a decimal JSON string so it survives
// round-trips through JSON consumers that truncate large numbers.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.i.String())
}

// UnmarshalJSON accepts a decimal/hexadecimal JSON string or a bare JSON number.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Bare numbers appear when upstream encoders skip the string form.
		s = string(data)
	}

	v, ok := parseBigInt(s)
	if !ok {
		return fmt.Errorf("invalid integer value: %s", data)
	}

	b.i = *v
	return nil
}
