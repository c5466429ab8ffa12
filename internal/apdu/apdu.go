// Package apdu frames the PC/SC pseudo-APDUs used to talk to the tag
// through a contactless reader, and checks their status words.
package apdu

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Class and instruction bytes of the reader pseudo-APDUs.
const (
	ClassPseudo byte = 0xFF

	InsGetData    byte = 0xCA // FF CA 00 00 00: tag UID
	InsVendor     byte = 0xFB // ISO15693 passthrough: data carries the tag command
	InsReadBinary byte = 0xB0 // Type 2 page read: FF B0 00 <page> 04
	InsUpdateBin  byte = 0xD6 // Type 2 page write: FF D6 00 <page> 04 <data>
)

// ISO15693 subcommands carried in the data field of InsVendor.
const (
	SubWriteSingleBlock   byte = 0x21
	SubReadMultipleBlocks byte = 0x23
)

// Success status word.
const (
	SW1OK byte = 0x90
	SW2OK byte = 0x00
)

// Command is one request frame: class, instruction, parameters, optional
// data and optional expected response length.
type Command struct {
	Data  []byte
	CLA   byte
	INS   byte
	P1    byte
	P2    byte
	Le    byte
	HasLe bool
}

// NewCommand builds a command without an expected length.
func NewCommand(cla, ins, p1, p2 byte, data []byte) Command {
	return Command{CLA: cla, INS: ins, P1: p1, P2: p2, Data: data}
}

// WithLe returns c with the expected response length set.
func (c Command) WithLe(le byte) Command {
	c.Le = le
	c.HasLe = true
	return c
}

// Encode serialises c as a short APDU.
func (c Command) Encode() ([]byte, error) {
	if len(c.Data) > 0xFF {
		return nil, fmt.Errorf("%w: APDU data too long: %d bytes", tagerr.ErrArgument, len(c.Data))
	}
	apdu := make([]byte, 0, 6+len(c.Data))
	apdu = append(apdu, c.CLA, c.INS, c.P1, c.P2)
	if len(c.Data) > 0 {
		apdu = append(apdu, byte(len(c.Data)))
		apdu = append(apdu, c.Data...)
	}
	if c.HasLe {
		apdu = append(apdu, c.Le)
	}
	return apdu, nil
}

// Response is the reply to a Command.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// ParseResponse splits a raw reply into data and status word.
func ParseResponse(raw []byte) (Response, error) {
	if len(raw) < 2 {
		return Response{}, fmt.Errorf("%w: short APDU response (%d bytes)", tagerr.ErrTransport, len(raw))
	}
	n := len(raw) - 2
	data := make([]byte, n)
	copy(data, raw[:n])
	return Response{Data: data, SW1: raw[n], SW2: raw[n+1]}, nil
}

// OK reports whether the status word is 90 00.
func (r Response) OK() bool {
	return r.SW1 == SW1OK && r.SW2 == SW2OK
}

// Err returns nil for a success status word and a transport error otherwise.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %w", tagerr.ErrTransport, &StatusError{SW1: r.SW1, SW2: r.SW2})
}

// StatusError is a non-success status word.
type StatusError struct {
	SW1 byte
	SW2 byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("APDU failed: SW=%02X%02X", e.SW1, e.SW2)
}

// Channel sends commands to the tag. Implementations block until the reader
// answers; timeouts belong to the transport underneath.
type Channel interface {
	Transmit(cmd Command) (Response, error)
}

// Transmit sends cmd and fails on transport errors and non-success status words.
func Transmit(ch Channel, cmd Command) ([]byte, error) {
	resp, err := ch.Transmit(cmd)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
