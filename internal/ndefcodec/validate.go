package ndefcodec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Record header flags.
const (
	flagMB  = 0x80
	flagME  = 0x40
	flagCF  = 0x20
	flagSR  = 0x10
	flagIL  = 0x08
	tnfMask = 0x07
	tnfRsvd = 0x07
)

const maxRecords = 255

// Validate checks the record framing of msg: every header, type, ID and
// payload fits, MB is set on the first record only and ME ends the message.
func Validate(msg []byte) error {
	if len(msg) == 0 {
		return fmt.Errorf("%w: empty NDEF message", tagerr.ErrCodec)
	}
	pos := 0
	for n := 0; pos < len(msg); n++ {
		if n >= maxRecords {
			return fmt.Errorf("%w: more than %d records", tagerr.ErrCodec, maxRecords)
		}
		size, _, header, err := recordSize(msg[pos:])
		if err != nil {
			return fmt.Errorf("%w: record %d: %v", tagerr.ErrCodec, n, err)
		}
		switch {
		case n == 0 && header&flagMB == 0:
			return fmt.Errorf("%w: first record lacks MB flag", tagerr.ErrCodec)
		case n > 0 && header&flagMB != 0:
			return fmt.Errorf("%w: record %d: MB flag on non-first record", tagerr.ErrCodec, n)
		case header&flagCF != 0 && header&flagME != 0:
			return fmt.Errorf("%w: record %d: CF and ME both set", tagerr.ErrCodec, n)
		case header&tnfMask == tnfRsvd:
			return fmt.Errorf("%w: record %d: reserved TNF", tagerr.ErrCodec, n)
		}
		pos += size
		if header&flagME != 0 {
			if pos != len(msg) {
				return fmt.Errorf("%w: %d bytes after the last record", tagerr.ErrCodec, len(msg)-pos)
			}
			return nil
		}
	}
	return fmt.Errorf("%w: message has no ME record", tagerr.ErrCodec)
}

// recordSize returns the encoded size of the record at the start of b and
// the offset of its payload, which always ends the record.
func recordSize(b []byte) (size, payloadAt int, header byte, err error) {
	if len(b) < 3 {
		return 0, 0, 0, fmt.Errorf("truncated header (%d bytes)", len(b))
	}
	header = b[0]
	typeLen := int(b[1])
	pos := 2

	var payloadLen int
	if header&flagSR != 0 {
		payloadLen = int(b[pos])
		pos++
	} else {
		if len(b) < pos+4 {
			return 0, 0, header, errors.New("truncated payload length")
		}
		payloadLen = int(binary.BigEndian.Uint32(b[pos:]))
		pos += 4
	}

	idLen := 0
	if header&flagIL != 0 {
		if len(b) < pos+1 {
			return 0, 0, header, errors.New("truncated ID length")
		}
		idLen = int(b[pos])
		pos++
	}

	payloadAt = pos + typeLen + idLen
	size = payloadAt + payloadLen
	if size > len(b) || size < pos {
		return 0, 0, header, fmt.Errorf("record needs %d bytes, %d available", size, len(b))
	}
	return size, payloadAt, header, nil
}

// rawPayload joins the chunk payloads of an encoded record exactly as they
// appear on the wire.
func rawPayload(b []byte) ([]byte, error) {
	var out []byte
	for pos := 0; pos < len(b); {
		size, payloadAt, _, err := recordSize(b[pos:])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", tagerr.ErrCodec, err)
		}
		out = append(out, b[pos+payloadAt:pos+size]...)
		pos += size
	}
	return out, nil
}
