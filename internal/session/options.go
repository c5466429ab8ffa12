package session

import (
	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/blockio"
)

// Progress describes one step of a multi-block write.
type Progress struct {
	// Op is "format", "format-empty" or "overwrite".
	Op string
	// Block is the block just written.
	Block int
	// Done counts blocks written so far in this operation, CC included.
	Done int
	// Total is the number of blocks the operation will write.
	Total int
}

// ProgressFunc is called after every block written. It runs on the caller's
// goroutine and should return quickly.
type ProgressFunc func(Progress)

// Config holds the session configuration.
type Config struct {
	// Logger receives step events. Defaults to zerolog.Nop().
	Logger zerolog.Logger

	// Progress is called after every block written (optional).
	Progress ProgressFunc

	// ReaderName is used in error messages.
	ReaderName string

	// ProbeCounts are the zero-based block counts tried by bulk reads.
	ProbeCounts []byte

	// BlockSize of the tag in bytes.
	BlockSize int

	// StrictCC validates the Capability Container before scanning for the
	// NDEF TLV instead of skipping any block 0 starting with 0xE1.
	StrictCC bool
}

func defaultConfig() Config {
	return Config{
		Logger:      zerolog.Nop(),
		BlockSize:   blockio.DefaultBlockSize,
		ProbeCounts: blockio.DefaultProbeCounts,
	}
}

// Option is a functional option for New.
type Option func(*Config)

// WithLogger sets the logger that observes every pipeline step.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithProgress sets a per-block write callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) {
		c.Progress = fn
	}
}

// WithReaderName names the reader in error messages.
func WithReaderName(name string) Option {
	return func(c *Config) {
		c.ReaderName = name
	}
}

// WithBlockSize overrides the 4-byte default. Non-positive sizes are ignored.
func WithBlockSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.BlockSize = size
		}
	}
}

// WithProbeCounts overrides the bulk read probe list.
func WithProbeCounts(counts ...byte) Option {
	return func(c *Config) {
		if len(counts) > 0 {
			c.ProbeCounts = counts
		}
	}
}

// WithStrictCC enables Capability Container validation on reads and
// in-place overwrites.
func WithStrictCC(strict bool) Option {
	return func(c *Config) {
		c.StrictCC = strict
	}
}
