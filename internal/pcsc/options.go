package pcsc

import (
	"time"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"
)

// Defaults applied by Open.
const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultConnectRetries = 10
	DefaultConnectDelay   = 100 * time.Millisecond
)

// Config holds the reader configuration.
type Config struct {
	// Match selects the reader by case-insensitive substring. Empty picks
	// the first reader.
	Match string

	// ShareMode for Connect. Defaults to scard.ShareShared.
	ShareMode scard.ShareMode

	// PollInterval bounds each status change wait.
	PollInterval time.Duration

	// ConnectRetries is how many times Connect is attempted before giving
	// up; ConnectDelay is the pause between attempts.
	ConnectRetries int
	ConnectDelay   time.Duration

	// Establish opens the PC/SC context. Defaults to Establish.
	Establish func() (Context, error)

	// Logger receives reader events. Defaults to zerolog.Nop().
	Logger zerolog.Logger
}

func defaultConfig() Config {
	return Config{
		ShareMode:      scard.ShareShared,
		PollInterval:   DefaultPollInterval,
		ConnectRetries: DefaultConnectRetries,
		ConnectDelay:   DefaultConnectDelay,
		Establish:      Establish,
		Logger:         zerolog.Nop(),
	}
}

// Option is a functional option for Open.
type Option func(*Config)

// WithMatch selects the reader whose name contains match.
func WithMatch(match string) Option {
	return func(c *Config) {
		c.Match = match
	}
}

// WithExclusive connects with scard.ShareExclusive.
func WithExclusive() Option {
	return func(c *Config) {
		c.ShareMode = scard.ShareExclusive
	}
}

// WithPollInterval sets the status change timeout.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithConnectRetries sets the connect attempts and the delay between them.
func WithConnectRetries(n int, delay time.Duration) Option {
	return func(c *Config) {
		if n > 0 {
			c.ConnectRetries = n
		}
		c.ConnectDelay = delay
	}
}

// WithEstablish replaces the PC/SC context factory.
func WithEstablish(fn func() (Context, error)) Option {
	return func(c *Config) {
		c.Establish = fn
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}
