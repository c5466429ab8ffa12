package ndefcodec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// uriPrefixes maps URI identifier codes to their abbreviated prefix.
var uriPrefixes = [...]string{
	0x00: "",
	0x01: "http://www.",
	0x02: "https://www.",
	0x03: "http://",
	0x04: "https://",
	0x05: "tel:",
	0x06: "mailto:",
	0x07: "ftp://anonymous:anonymous@",
	0x08: "ftp://ftp.",
	0x09: "ftps://",
	0x0A: "sftp://",
	0x0B: "smb://",
	0x0C: "nfs://",
	0x0D: "ftp://",
	0x0E: "dav://",
	0x0F: "news:",
	0x10: "telnet://",
	0x11: "imap:",
	0x12: "rtsp://",
	0x13: "urn:",
	0x14: "pop:",
	0x15: "sip:",
	0x16: "sips:",
	0x17: "tftp:",
	0x18: "btspp://",
	0x19: "btl2cap://",
	0x1A: "btgoep://",
	0x1B: "tcpobex://",
	0x1C: "irdaobex://",
	0x1D: "file://",
	0x1E: "urn:epc:id:",
	0x1F: "urn:epc:tag:",
	0x20: "urn:epc:pat:",
	0x21: "urn:epc:raw:",
	0x22: "urn:epc:",
	0x23: "urn:nfc:",
}

// URIPrefix returns the prefix for an identifier code. Codes above 0x23 are
// reserved and expand to nothing.
func URIPrefix(code byte) string {
	if int(code) < len(uriPrefixes) {
		return uriPrefixes[code]
	}
	return ""
}

// URIString expands a URI record payload: identifier code then the rest.
func URIString(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty URI payload", tagerr.ErrCodec)
	}
	return URIPrefix(payload[0]) + string(payload[1:]), nil
}

// TextString returns the text of a Text record payload: status byte
// (bit 7 UTF-16, bits 0-5 language length), language code, text.
func TextString(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty text payload", tagerr.ErrCodec)
	}
	status := payload[0]
	langLen := int(status & 0x3F)
	if len(payload) < 1+langLen {
		return "", fmt.Errorf("%w: text language length %d exceeds payload", tagerr.ErrCodec, langLen)
	}
	body := payload[1+langLen:]
	if status&0x80 == 0 {
		return string(body), nil
	}
	return decodeUTF16(body)
}

func decodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd UTF-16 text length %d", tagerr.ErrCodec, len(b))
	}
	var order binary.ByteOrder = binary.BigEndian
	if len(b) >= 2 {
		switch {
		case b[0] == 0xFF && b[1] == 0xFE:
			order, b = binary.LittleEndian, b[2:]
		case b[0] == 0xFE && b[1] == 0xFF:
			b = b[2:]
		}
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), nil
}
