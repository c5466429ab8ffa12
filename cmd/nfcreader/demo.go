package main

import (
	"fmt"
	"io"

	"github.com/laith43d/nfc-tools/internal/blockio"
	"github.com/laith43d/nfc-tools/internal/ndefcodec"
	"github.com/laith43d/nfc-tools/internal/session"
	"github.com/laith43d/nfc-tools/internal/tlv"
)

const demoURL = "https://example.com"

// showIdealFormat prints what a well formatted ISO15693 tag looks like,
// with a real layout for demoURL computed the way nfcwriter writes it.
func showIdealFormat(w io.Writer) error {
	const bs = blockio.DefaultBlockSize

	encoded, err := ndefcodec.EncodeURI(demoURL)
	if err != nil {
		return err
	}
	frame, err := tlv.Build(encoded, bs)
	if err != nil {
		return err
	}
	cc, err := session.DerivedCC(len(frame), bs)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%s\nIDEAL ISO15693 (TYPE 5) TAG FORMAT\n%s\n", rule, rule)
	fmt.Fprint(w, `
📋 MEMORY LAYOUT (blocks of 4 bytes, addressed from 0):

Block 00: [E1][VER/ACCESS][MLEN][FEATURES]   // Capability Container (CC)
Block 01+: [03][LEN][NDEF...][FE][00...]     // NDEF TLV, terminator, padding

🔧 CAPABILITY CONTAINER (Block 0):
  E1 = Magic number (NDEF formatted)
  40 = Mapping version 1.0, read and write access granted
  MLEN = Data area size in 8-byte units
  FEATURES = 00, or 01 when multiple block read is supported

🔧 TLV STRUCTURE:
  00 = NULL TLV (single byte, skipped)
  03 = NDEF Message TLV
  LEN = 1 byte, or FF + 2 bytes big-endian for messages of 255 bytes or more
  FE = Terminator TLV

📝 NDEF RECORD FORMAT (for URI):
  [HEADER][TYPE_LEN][PAYLOAD_LEN][TYPE][PAYLOAD]
  HEADER 0xD1 = MB | ME | SR | TNF well-known
  TYPE = 'U' (0x55), PAYLOAD = [URI_CODE][URI_STRING]
  URI_CODE 0x04 = "https://"

🔧 PC/SC COMMANDS:
  FF CA 00 00 00                 Get UID
  FF FB 00 00 03 23 <first> <n>  Read n+1 blocks
  FF FB 00 00 06 21 <block> <4B> Write one block

`)
	fmt.Fprintf(w, "✅ EXAMPLE: FORMATTED TAG WITH %q\n", demoURL)
	fmt.Fprintf(w, "Block 00: % X   // %s\n", cc.Bytes(), cc)
	for i := 0; i < len(frame); i += bs {
		fmt.Fprintf(w, "Block %02d: % X\n", 1+i/bs, frame[i:i+bs])
	}
	fmt.Fprintln(w, rule)
	return nil
}
