// Package tlv locates, extracts and builds the NDEF Message TLV inside a
// Type 5 tag memory image.
//
// Memory starts with a 4-byte Capability Container when its first byte is
// 0xE1. TLVs follow: NULL (0x00) and Terminator (0xFE) are a single byte,
// every other type carries a 1-byte length, or 0xFF followed by a big-endian
// 16-bit length.
package tlv

import (
	"encoding/binary"
	"fmt"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// TLV types.
const (
	TypeNull       byte = 0x00
	TypeNDEF       byte = 0x03
	TypeTerminator byte = 0xFE
)

const (
	longLengthMarker = 0xFF
	maxLength        = 0xFFFF
	minBufferSize    = 3
)

// Scanner walks TLVs in a memory image.
type Scanner struct {
	// StrictCC requires a valid Capability Container in the first four bytes
	// instead of skipping them whenever the first byte is 0xE1.
	StrictCC bool
}

// Locate returns the offset of the NDEF TLV's type byte.
func Locate(buf []byte) (int, error) {
	return Scanner{}.Locate(buf)
}

// Extract returns a copy of the NDEF TLV's value.
func Extract(buf []byte) ([]byte, error) {
	return Scanner{}.Extract(buf)
}

// Locate returns the offset of the NDEF TLV's type byte.
func (s Scanner) Locate(buf []byte) (int, error) {
	off, _, _, err := s.find(buf)
	return off, err
}

// Extract returns a copy of the NDEF TLV's value.
func (s Scanner) Extract(buf []byte) ([]byte, error) {
	_, valueOff, length, err := s.find(buf)
	if err != nil {
		return nil, err
	}
	if valueOff+length > len(buf) {
		return nil, fmt.Errorf("%w: NDEF length %d exceeds %d available bytes",
			tagerr.ErrFraming, length, len(buf)-valueOff)
	}
	payload := make([]byte, length)
	copy(payload, buf[valueOff:valueOff+length])
	return payload, nil
}

func (s Scanner) start(buf []byte) (int, error) {
	if s.StrictCC {
		cc, err := ParseCC(buf)
		if err != nil {
			return 0, err
		}
		if err := cc.Validate(); err != nil {
			return 0, err
		}
		return CCSize, nil
	}
	if len(buf) >= CCSize && buf[0] == CCMagic {
		return CCSize, nil
	}
	return 0, nil
}

func (s Scanner) find(buf []byte) (tlvOff, valueOff, length int, err error) {
	if len(buf) < minBufferSize {
		return 0, 0, 0, fmt.Errorf("%w: buffer too small (%d bytes)", tagerr.ErrFraming, len(buf))
	}
	off, err := s.start(buf)
	if err != nil {
		return 0, 0, 0, err
	}
	for off < len(buf) {
		switch buf[off] {
		case TypeNull:
			off++
			continue
		case TypeTerminator:
			return 0, 0, 0, errNotFound(off)
		}
		n, header, err := readLength(buf, off)
		if err != nil {
			return 0, 0, 0, err
		}
		if buf[off] == TypeNDEF {
			return off, off + header, n, nil
		}
		off += header + n
	}
	return 0, 0, 0, errNotFound(len(buf))
}

func errNotFound(off int) error {
	return fmt.Errorf("%w: NDEF TLV not found (scan stopped at offset %d)", tagerr.ErrFraming, off)
}

// readLength decodes the length field of the TLV at off and returns the
// value length and the header size (type plus length bytes).
func readLength(buf []byte, off int) (length, header int, err error) {
	if off+1 >= len(buf) {
		return 0, 0, fmt.Errorf("%w: incomplete length field at offset %d", tagerr.ErrFraming, off)
	}
	if buf[off+1] != longLengthMarker {
		return int(buf[off+1]), 2, nil
	}
	if off+3 >= len(buf) {
		return 0, 0, fmt.Errorf("%w: incomplete extended length at offset %d", tagerr.ErrFraming, off)
	}
	return int(binary.BigEndian.Uint16(buf[off+2 : off+4])), 4, nil
}

// Build frames msg as an NDEF TLV followed by a Terminator TLV and pads the
// result with zeros to a multiple of blockSize.
func Build(msg []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", tagerr.ErrArgument, blockSize)
	}
	if len(msg) == 0 {
		return nil, fmt.Errorf("%w: empty NDEF message", tagerr.ErrArgument)
	}
	if len(msg) > maxLength {
		return nil, fmt.Errorf("%w: NDEF message of %d bytes exceeds TLV length limit", tagerr.ErrArgument, len(msg))
	}

	out := make([]byte, 0, len(msg)+6+blockSize)
	out = append(out, TypeNDEF)
	if len(msg) < longLengthMarker {
		out = append(out, byte(len(msg)))
	} else {
		out = append(out, longLengthMarker)
		out = binary.BigEndian.AppendUint16(out, uint16(len(msg)))
	}
	out = append(out, msg...)
	out = append(out, TypeTerminator)

	if pad := (blockSize - len(out)%blockSize) % blockSize; pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out, nil
}
