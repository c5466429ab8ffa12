package tlv

import (
	"fmt"
	"strings"
)

// Entry is one TLV found by Walk.
type Entry struct {
	Offset int // offset of the type byte
	Length int // value length, 0 for NULL and Terminator
	Header int // type plus length bytes
	Type   byte
}

// Value returns the entry's value bytes, clipped to buf.
func (e Entry) Value(buf []byte) []byte {
	start := e.Offset + e.Header
	end := min(start+e.Length, len(buf))
	if start >= end {
		return nil
	}
	return buf[start:end]
}

// Walk calls fn for every TLV until the Terminator, the end of buf or a
// malformed length field. The CC is skipped the same way Locate skips it.
// It returns the error that stopped the walk, if any.
func (s Scanner) Walk(buf []byte, fn func(Entry) bool) error {
	off, err := s.start(buf)
	if err != nil {
		return err
	}
	for off < len(buf) {
		t := buf[off]
		if t == TypeNull || t == TypeTerminator {
			if !fn(Entry{Offset: off, Header: 1, Type: t}) || t == TypeTerminator {
				return nil
			}
			off++
			continue
		}
		n, header, err := readLength(buf, off)
		if err != nil {
			return err
		}
		if !fn(Entry{Offset: off, Length: n, Header: header, Type: t}) {
			return nil
		}
		off += header + n
	}
	return nil
}

// TypeName is a human readable TLV type.
func TypeName(t byte) string {
	switch t {
	case TypeNull:
		return "NULL"
	case 0x01:
		return "LOCK_CONTROL"
	case 0x02:
		return "MEMORY_CONTROL"
	case TypeNDEF:
		return "NDEF"
	case 0xFD:
		return "PROPRIETARY"
	case TypeTerminator:
		return "TERMINATOR"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", t)
	}
}

// Describe renders the TLV layout of buf, one line per TLV, with the block
// and byte each one starts at.
func (s Scanner) Describe(buf []byte, blockSize int) string {
	if blockSize <= 0 {
		blockSize = 4
	}
	var sb strings.Builder
	if len(buf) >= CCSize && buf[0] == CCMagic {
		cc, _ := ParseCC(buf)
		fmt.Fprintf(&sb, "Block %02d: %s\n", 0, cc)
	}
	err := s.Walk(buf, func(e Entry) bool {
		fmt.Fprintf(&sb, "Block %02d, Byte %d: %s", e.Offset/blockSize, e.Offset%blockSize, TypeName(e.Type))
		if e.Header > 1 {
			fmt.Fprintf(&sb, " len=%d", e.Length)
			if e.Header == 4 {
				sb.WriteString(" (3-byte length)")
			}
			if e.Offset+e.Header+e.Length > len(buf) {
				fmt.Fprintf(&sb, " exceeds %d available bytes", len(buf)-e.Offset-e.Header)
			}
		}
		sb.WriteString("\n")
		return true
	})
	if err != nil {
		fmt.Fprintf(&sb, "error: %v\n", err)
	}
	return sb.String()
}
