package apdu

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// RawTransmitter sends raw APDU bytes. *scard.Card satisfies it.
type RawTransmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Card adapts a raw transmitter, usually a connected *scard.Card, to Channel.
type Card struct {
	tx RawTransmitter
}

// NewCard wraps tx.
func NewCard(tx RawTransmitter) *Card {
	return &Card{tx: tx}
}

// Transmit encodes cmd, sends it and parses the reply. Status words are not
// checked here; see Transmit and Response.Err.
func (c *Card) Transmit(cmd Command) (Response, error) {
	raw, err := cmd.Encode()
	if err != nil {
		return Response{}, err
	}
	resp, err := c.tx.Transmit(raw)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", tagerr.ErrTransport, err)
	}
	return ParseResponse(resp)
}

// GetUIDCommand is FF CA 00 00 00.
func GetUIDCommand() Command {
	return NewCommand(ClassPseudo, InsGetData, 0x00, 0x00, nil).WithLe(0x00)
}

// ReadMultipleBlocksCommand is FF FB 00 00 03 23 <first> <count-1>.
func ReadMultipleBlocksCommand(first, countMinus1 byte) Command {
	return NewCommand(ClassPseudo, InsVendor, 0x00, 0x00,
		[]byte{SubReadMultipleBlocks, first, countMinus1})
}

// WriteSingleBlockCommand is FF FB 00 00 <n> 21 <block> <data...>.
func WriteSingleBlockCommand(block byte, data []byte) Command {
	payload := make([]byte, 0, 2+len(data))
	payload = append(payload, SubWriteSingleBlock, block)
	payload = append(payload, data...)
	return NewCommand(ClassPseudo, InsVendor, 0x00, 0x00, payload)
}
