// Package ndefcodec encodes and decodes NDEF messages with
// github.com/hsanjuan/go-ndef and turns records into display strings.
package ndefcodec

import (
	"fmt"

	"github.com/hsanjuan/go-ndef"

	"github.com/laith43d/nfc-tools/internal/hexutil"
	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// EmptyRecord is a message holding one empty record (TNF 0, MB|ME|SR).
var EmptyRecord = []byte{0xD0, 0x00, 0x00}

// printableRatio is the share of printable characters above which an
// unknown payload is shown as text instead of hex.
const printableRatio = 0.8

// EncodeURI returns a single URI record message. The shortest matching
// URI identifier code is chosen by go-ndef.
func EncodeURI(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL", tagerr.ErrArgument)
	}
	b, err := ndef.NewMessageFromRecords(ndef.NewURIRecord(url)).Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: encode URI: %v", tagerr.ErrCodec, err)
	}
	return b, nil
}

// EncodeText returns a single Text record message.
func EncodeText(s, lang string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty text", tagerr.ErrArgument)
	}
	b, err := ndef.NewTextMessage(s, lang).Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: encode text: %v", tagerr.ErrCodec, err)
	}
	return b, nil
}

// Decode parses an NDEF message. Empty input, broken record framing and
// messages without records are rejected.
func Decode(b []byte) (*ndef.Message, error) {
	if err := Validate(b); err != nil {
		return nil, err
	}
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(b); err != nil {
		return nil, fmt.Errorf("%w: %v", tagerr.ErrCodec, err)
	}
	if len(msg.Records) == 0 {
		return nil, fmt.Errorf("%w: NDEF message has no records", tagerr.ErrCodec)
	}
	return msg, nil
}

// RecordString renders a record: URI records as their URI, Text records as
// their text, anything else as text when it looks printable and as
// uppercase hex otherwise. Payloads are read from the record's own
// encoding so Text records keep their UTF-16 flag.
func RecordString(rec *ndef.Record) (string, error) {
	if rec.Empty() {
		return "", fmt.Errorf("%w: empty record", tagerr.ErrCodec)
	}
	enc, err := rec.Marshal()
	if err != nil {
		return "", fmt.Errorf("%w: record payload: %v", tagerr.ErrCodec, err)
	}
	b, err := rawPayload(enc)
	if err != nil {
		return "", err
	}
	if rec.TNF() == ndef.NFCForumWellKnownType {
		switch rec.Type() {
		case "U":
			return URIString(b)
		case "T":
			return TextString(b)
		}
	}
	return PayloadString(b), nil
}

// PayloadString is the fallback rendering of a raw payload.
func PayloadString(b []byte) string {
	if s, ok := Printable(b); ok {
		return s
	}
	return hexutil.Encode(b)
}

// Printable decodes b as UTF-8 and reports whether at least 80% of its
// characters are printable ASCII, CR, LF or TAB.
func Printable(b []byte) (string, bool) {
	s := string(b)
	total, printable := 0, 0
	for _, r := range s {
		total++
		if (r >= 0x20 && r <= 0x7E) || r == '\r' || r == '\n' || r == '\t' {
			printable++
		}
	}
	if total == 0 {
		return "", false
	}
	return s, float64(printable) >= printableRatio*float64(total)
}
