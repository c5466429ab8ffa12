package uidservice

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

// Config is the service configuration.
type Config struct {
	ServiceName   string
	ReadInterval  time.Duration
	RetryInterval time.Duration
	// RemovalTimeout bounds the wait for the tag to leave the reader.
	RemovalTimeout time.Duration
	AutoPaste      bool
	UIDFormat      Format
	LogLevel       string // "debug", "info", "warn", "error"
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "NFCUIDService",
		ReadInterval:   100 * time.Millisecond,
		RetryInterval:  2 * time.Second,
		RemovalTimeout: 10 * time.Second,
		AutoPaste:      true,
		UIDFormat:      FormatHex,
		LogLevel:       "info",
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := ParseFormat(string(c.UIDFormat)); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q: %v", tagerr.ErrArgument, c.LogLevel, err)
	}
	if c.ReadInterval <= 0 || c.RetryInterval <= 0 || c.RemovalTimeout <= 0 {
		return fmt.Errorf("%w: intervals must be positive", tagerr.ErrArgument)
	}
	return nil
}

// Logger returns the service logger writing to w. Only debug level logs
// anything; at other levels the service stays silent so it can run in the
// background.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	if c.LogLevel != "debug" {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}).
		Level(zerolog.DebugLevel).
		With().Timestamp().Str("service", c.ServiceName).Logger()
}
