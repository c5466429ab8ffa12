// Package blockio reads and writes ISO15693 tag memory one block at a time
// through the reader's vendor passthrough command.
package blockio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/apdu"
	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// DefaultBlockSize is the block size of common Type 5 tags (ICODE SLIX, ST25DV).
const DefaultBlockSize = 4

// DefaultProbeCounts are the zero-based block counts tried by ReadAll:
// 64, 32, 16 and then 8 blocks.
var DefaultProbeCounts = []byte{63, 31, 15, 7}

// Driver issues block commands over a card channel.
type Driver struct {
	ch        apdu.Channel
	log       zerolog.Logger
	probes    []byte
	blockSize int
}

// Option configures a Driver.
type Option func(*Driver)

// WithBlockSize overrides DefaultBlockSize.
func WithBlockSize(size int) Option {
	return func(d *Driver) {
		if size > 0 {
			d.blockSize = size
		}
	}
}

// WithProbeCounts overrides DefaultProbeCounts. Counts are zero-based.
func WithProbeCounts(counts ...byte) Option {
	return func(d *Driver) {
		if len(counts) > 0 {
			d.probes = append([]byte(nil), counts...)
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Driver) {
		d.log = log
	}
}

// New returns a driver for ch.
func New(ch apdu.Channel, opts ...Option) *Driver {
	d := &Driver{
		ch:        ch,
		log:       zerolog.Nop(),
		probes:    DefaultProbeCounts,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BlockSize returns the configured block size in bytes.
func (d *Driver) BlockSize() int {
	return d.blockSize
}

// ReadBlocks reads countMinus1+1 blocks starting at first.
func (d *Driver) ReadBlocks(first, countMinus1 byte) ([]byte, error) {
	data, err := apdu.Transmit(d.ch, apdu.ReadMultipleBlocksCommand(first, countMinus1))
	if err != nil {
		return nil, fmt.Errorf("read blocks %d+%d: %w", first, int(countMinus1)+1, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read blocks %d+%d: %w: no data returned", first, int(countMinus1)+1, tagerr.ErrFraming)
	}
	if len(data)%d.blockSize != 0 {
		return nil, fmt.Errorf("read blocks %d+%d: %w: %d bytes is not a multiple of block size %d",
			first, int(countMinus1)+1, tagerr.ErrFraming, len(data), d.blockSize)
	}
	return data, nil
}

// WriteBlock writes exactly one block.
func (d *Driver) WriteBlock(block byte, data []byte) error {
	if len(data) == 0 || len(data) != d.blockSize {
		return fmt.Errorf("write block %d: %w: need %d bytes, got %d",
			block, tagerr.ErrArgument, d.blockSize, len(data))
	}
	if _, err := apdu.Transmit(d.ch, apdu.WriteSingleBlockCommand(block, data)); err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	return nil
}

// ReadAll reads the memory image from block 0, trying each probe count in
// turn until the tag accepts one. Tag capacity is unknown up front and some
// readers reject large multi-block reads.
func (d *Driver) ReadAll() ([]byte, error) {
	var lastErr error
	for _, count := range d.probes {
		data, err := d.ReadBlocks(0, count)
		if err == nil {
			d.log.Debug().Int("blocks", int(count)+1).Int("bytes", len(data)).Msg("bulk read accepted")
			return data, nil
		}
		d.log.Debug().Err(err).Int("blocks", int(count)+1).Msg("bulk read probe failed")
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no probe counts configured", tagerr.ErrArgument)
	}
	return nil, lastErr
}

// BlockWriteError reports the block that failed during a multi-block write.
// Blocks before it were written and are not rolled back.
type BlockWriteError struct {
	Err     error
	Block   int
	Written int
}

func (e *BlockWriteError) Error() string {
	return fmt.Sprintf("block %d failed after %d blocks written: %v", e.Block, e.Written, e.Err)
}

func (e *BlockWriteError) Unwrap() error {
	return e.Err
}

// WriteBlocks writes data, a whole number of blocks, starting at first.
// progress, when non-nil, is called after every block.
func (d *Driver) WriteBlocks(first int, data []byte, progress func(block, done, total int)) error {
	if len(data)%d.blockSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a multiple of block size %d", tagerr.ErrArgument, len(data), d.blockSize)
	}
	total := len(data) / d.blockSize
	if first < 0 || first+total-1 > 0xFF {
		return fmt.Errorf("%w: blocks %d..%d out of addressable range", tagerr.ErrCapacity, first, first+total-1)
	}
	for i := range total {
		block := first + i
		chunk := data[i*d.blockSize : (i+1)*d.blockSize]
		if err := d.WriteBlock(byte(block), chunk); err != nil {
			return &BlockWriteError{Err: err, Block: block, Written: i}
		}
		d.log.Debug().Int("block", block).Hex("data", chunk).Msg("block written")
		if progress != nil {
			progress(block, i+1, total)
		}
	}
	return nil
}

// FailedBlock returns the block number carried by a BlockWriteError in err.
func FailedBlock(err error) (int, bool) {
	var bwe *BlockWriteError
	if errors.As(err, &bwe) {
		return bwe.Block, true
	}
	return 0, false
}
