package uidservice

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/hexutil"
	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Format is a UID rendering.
type Format string

const (
	FormatHex             Format = "hex"
	FormatHexReversed     Format = "hex-reversed"
	FormatDecimal         Format = "decimal"
	FormatDecimalReversed Format = "decimal-reversed"
)

// Formats lists the supported renderings.
var Formats = []Format{FormatHex, FormatHexReversed, FormatDecimal, FormatDecimalReversed}

// ParseFormat validates s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown UID format %q", tagerr.ErrArgument, s)
}

// FormatUID renders uid. Decimal forms use arbitrary precision, so 7 and 8
// byte ISO15693 UIDs are rendered exactly.
func FormatUID(uid []byte, f Format) (string, error) {
	if len(uid) == 0 {
		return "", fmt.Errorf("%w: empty UID", tagerr.ErrArgument)
	}
	switch f {
	case FormatHex:
		return hexutil.Encode(uid), nil
	case FormatHexReversed:
		return hexutil.Encode(hexutil.Reverse(uid)), nil
	case FormatDecimal:
		return hexutil.Decimal(uid).String(), nil
	case FormatDecimalReversed:
		_, v, err := hexutil.ReverseHexToDecimal(hexutil.Encode(uid))
		if err != nil {
			return "", err
		}
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: unknown UID format %q", tagerr.ErrArgument, f)
	}
}
