// Package hexutil converts tag identifiers between byte, hex and decimal forms.
package hexutil

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Encode returns b as unseparated uppercase hex.
func Encode(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// Normalize strips spaces and uppercases s. It fails on odd length.
func Normalize(s string) (string, error) {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if len(s)%2 != 0 {
		return "", fmt.Errorf("%w: odd-length hex %q", tagerr.ErrArgument, s)
	}
	return s, nil
}

// Decode parses hex, ignoring spaces and case.
func Decode(s string) ([]byte, error) {
	s, err := Normalize(s)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tagerr.ErrArgument, err)
	}
	return b, nil
}

// Reverse returns a reversed copy of b.
func Reverse(b []byte) []byte {
	reversed := make([]byte, len(b))
	for i, j := 0, len(b)-1; i < len(b); i, j = i+1, j-1 {
		reversed[i] = b[j]
	}
	return reversed
}

// Decimal interprets b as a big-endian unsigned integer of any width.
func Decimal(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// ReverseHexToDecimal reverses the byte order of a hex UID and returns the
// reversed hex together with its unsigned value. Legacy backends key tags by
// that number.
func ReverseHexToDecimal(s string) (string, *big.Int, error) {
	b, err := Decode(s)
	if err != nil {
		return "", nil, err
	}
	if len(b) == 0 {
		return "", nil, fmt.Errorf("%w: empty hex", tagerr.ErrArgument)
	}
	reversedHex := Encode(Reverse(b))
	value, ok := new(big.Int).SetString(reversedHex, 16)
	if !ok {
		return "", nil, fmt.Errorf("%w: cannot parse %q", tagerr.ErrArgument, reversedHex)
	}
	return reversedHex, value, nil
}

// Uint64 is the fixed-width form of ReverseHexToDecimal. It fails instead of
// truncating when the value does not fit.
func Uint64(s string) (uint64, error) {
	_, value, err := ReverseHexToDecimal(s)
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %s overflows uint64", tagerr.ErrArgument, value)
	}
	return value.Uint64(), nil
}
