// Package tagsim simulates a Type 5 tag sitting on a PC/SC reader. It answers
// the pseudo-APDUs used by the tools and records every command so tests can
// assert what reached the tag.
package tagsim

import (
	"fmt"

	"github.com/laith43d/nfc-tools/internal/apdu"
	"github.com/laith43d/nfc-tools/internal/syncutil"
)

// Status words returned by the simulated reader.
var (
	swOK          = [2]byte{0x90, 0x00}
	swFailed      = [2]byte{0x63, 0x00}
	swOutOfRange  = [2]byte{0x6A, 0x82}
	swUnsupported = [2]byte{0x6D, 0x00}
	swWrongLength = [2]byte{0x67, 0x00}
)

// Tag is a simulated tag. Fields may be set before use; methods are safe for
// concurrent callers.
type Tag struct {
	// TransportErr, when set, is returned by every Transmit.
	TransportErr error
	// FailWrite lists block numbers whose writes are answered with 63 00.
	FailWrite map[int]bool
	UID       []byte
	memory    []byte
	commands  []apdu.Command
	writes    []int
	reads     []int
	// MaxReadBlocks caps the blocks accepted by one read command. Zero means
	// no cap beyond the memory size.
	MaxReadBlocks int
	blockSize     int
	mu            syncutil.Mutex
}

// New returns a tag with blocks blocks of blockSize zero bytes.
func New(uid []byte, blocks, blockSize int) *Tag {
	return &Tag{
		UID:       append([]byte(nil), uid...),
		memory:    make([]byte, blocks*blockSize),
		blockSize: blockSize,
		FailWrite: map[int]bool{},
	}
}

// Load copies data into memory starting at byte 0.
func (t *Tag) Load(data []byte) *Tag {
	t.mu.Lock()
	defer t.mu.Unlock()
	copy(t.memory, data)
	return t
}

// Memory returns a copy of the tag memory.
func (t *Tag) Memory() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.memory...)
}

// Block returns a copy of one block.
func (t *Tag) Block(n int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.memory[n*t.blockSize:(n+1)*t.blockSize]...)
}

// Writes returns the block numbers written successfully, in order.
func (t *Tag) Writes() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.writes...)
}

// ReadCounts returns the block counts (one-based) of every read command,
// accepted or not.
func (t *Tag) ReadCounts() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.reads...)
}

// Commands returns every command received.
func (t *Tag) Commands() []apdu.Command {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]apdu.Command(nil), t.commands...)
}

// Transmit implements apdu.Channel.
func (t *Tag) Transmit(cmd apdu.Command) (apdu.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.commands = append(t.commands, cmd)
	if t.TransportErr != nil {
		return apdu.Response{}, t.TransportErr
	}
	if cmd.CLA != apdu.ClassPseudo {
		return reply(nil, swUnsupported), nil
	}
	switch cmd.INS {
	case apdu.InsGetData:
		if len(t.UID) == 0 {
			return reply(nil, swFailed), nil
		}
		return reply(t.UID, swOK), nil
	case apdu.InsVendor:
		return t.vendor(cmd.Data), nil
	default:
		return reply(nil, swUnsupported), nil
	}
}

func (t *Tag) vendor(data []byte) apdu.Response {
	if len(data) < 2 {
		return reply(nil, swWrongLength)
	}
	switch data[0] {
	case apdu.SubReadMultipleBlocks:
		if len(data) != 3 {
			return reply(nil, swWrongLength)
		}
		first, count := int(data[1]), int(data[2])+1
		t.reads = append(t.reads, count)
		if t.MaxReadBlocks > 0 && count > t.MaxReadBlocks {
			return reply(nil, swFailed)
		}
		start, end := first*t.blockSize, (first+count)*t.blockSize
		if end > len(t.memory) {
			return reply(nil, swOutOfRange)
		}
		return reply(t.memory[start:end], swOK)
	case apdu.SubWriteSingleBlock:
		block, payload := int(data[1]), data[2:]
		if len(payload) != t.blockSize {
			return reply(nil, swWrongLength)
		}
		if (block+1)*t.blockSize > len(t.memory) {
			return reply(nil, swOutOfRange)
		}
		if t.FailWrite[block] {
			return reply(nil, swFailed)
		}
		copy(t.memory[block*t.blockSize:], payload)
		t.writes = append(t.writes, block)
		return reply(nil, swOK)
	default:
		return reply(nil, swUnsupported)
	}
}

func reply(data []byte, sw [2]byte) apdu.Response {
	return apdu.Response{Data: append([]byte(nil), data...), SW1: sw[0], SW2: sw[1]}
}

// Raw returns a raw byte transmitter backed by t, the shape of a connected
// *scard.Card, for exercising apdu.Card.
func (t *Tag) Raw() apdu.RawTransmitter {
	return rawTag{t}
}

type rawTag struct {
	t *Tag
}

func (r rawTag) Transmit(raw []byte) ([]byte, error) {
	cmd, err := decode(raw)
	if err != nil {
		return nil, err
	}
	resp, err := r.t.Transmit(cmd)
	if err != nil {
		return nil, err
	}
	return append(resp.Data, resp.SW1, resp.SW2), nil
}

func decode(raw []byte) (apdu.Command, error) {
	if len(raw) < 4 {
		return apdu.Command{}, fmt.Errorf("tagsim: APDU too short: % X", raw)
	}
	cmd := apdu.NewCommand(raw[0], raw[1], raw[2], raw[3], nil)
	rest := raw[4:]
	switch {
	case len(rest) == 0:
	case len(rest) == 1:
		cmd = cmd.WithLe(rest[0])
	default:
		lc := int(rest[0])
		if len(rest) < 1+lc {
			return apdu.Command{}, fmt.Errorf("tagsim: Lc %d exceeds APDU: % X", lc, raw)
		}
		cmd.Data = append([]byte(nil), rest[1:1+lc]...)
		if len(rest) == 2+lc {
			cmd = cmd.WithLe(rest[1+lc])
		}
	}
	return cmd, nil
}
