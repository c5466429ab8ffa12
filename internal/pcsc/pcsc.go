// Package pcsc finds a PC/SC reader, waits for tags and connects to them.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

var (
	// ErrNoReader is returned when the system has no reader.
	ErrNoReader = fmt.Errorf("%w: no PC/SC reader found", tagerr.ErrTransport)
	errClosed   = fmt.Errorf("%w: PC/SC context released", tagerr.ErrTransport)
)

// Card is a connected tag. *scard.Card satisfies it.
type Card interface {
	Transmit(cmd []byte) ([]byte, error)
	Disconnect(d scard.Disposition) error
}

// Context is the subset of *scard.Context used here.
type Context interface {
	ListReaders() ([]string, error)
	GetStatusChange(rs []scard.ReaderState, timeout time.Duration) error
	Connect(reader string, mode scard.ShareMode, proto scard.Protocol) (Card, error)
	Release() error
}

type scardContext struct {
	*scard.Context
}

func (c scardContext) Connect(reader string, mode scard.ShareMode, proto scard.Protocol) (Card, error) {
	card, err := c.Context.Connect(reader, mode, proto)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// Establish opens a context on the system PC/SC service.
func Establish() (Context, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to establish PC/SC context: %v", tagerr.ErrTransport, err)
	}
	return scardContext{ctx}, nil
}

// SelectReader picks the first reader whose name contains match, ignoring
// case. An empty match picks the first reader.
func SelectReader(readers []string, match string) (string, error) {
	if len(readers) == 0 {
		return "", ErrNoReader
	}
	if match == "" {
		return readers[0], nil
	}
	want := strings.ToLower(match)
	for _, r := range readers {
		if strings.Contains(strings.ToLower(r), want) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: no reader matching %q among %q", tagerr.ErrArgument, match, readers)
}

// Reader is one selected PC/SC reader.
type Reader struct {
	ctx       Context
	name      string
	establish func() (Context, error)
	cfg       Config
	log       zerolog.Logger
}

// Open establishes a PC/SC context and selects a reader.
func Open(opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, err := cfg.Establish()
	if err != nil {
		return nil, err
	}
	r := &Reader{ctx: ctx, establish: cfg.Establish, cfg: cfg, log: cfg.Logger}
	if err := r.selectReader(); err != nil {
		_ = ctx.Release()
		return nil, err
	}
	return r, nil
}

func (r *Reader) selectReader() error {
	readers, err := r.ctx.ListReaders()
	if err != nil {
		if errors.Is(err, scard.ErrNoReadersAvailable) {
			return ErrNoReader
		}
		return fmt.Errorf("%w: failed to list readers: %v", tagerr.ErrTransport, err)
	}
	name, err := SelectReader(readers, r.cfg.Match)
	if err != nil {
		return err
	}
	r.name = name
	r.log.Debug().Int("readers", len(readers)).Str("reader", name).Msg("reader selected")
	return nil
}

// Name returns the selected reader name.
func (r *Reader) Name() string {
	return r.name
}

// WaitPresent blocks until a tag is on the reader or ctx is done.
func (r *Reader) WaitPresent(ctx context.Context) error {
	return r.waitFor(ctx, func(st scard.StateFlag) bool { return st&scard.StatePresent != 0 })
}

// WaitRemoval blocks until the reader is empty or ctx is done.
func (r *Reader) WaitRemoval(ctx context.Context) error {
	return r.waitFor(ctx, func(st scard.StateFlag) bool { return st&scard.StatePresent == 0 })
}

func (r *Reader) waitFor(ctx context.Context, done func(scard.StateFlag) bool) error {
	if r.ctx == nil {
		return errClosed
	}
	rs := []scard.ReaderState{{Reader: r.name, CurrentState: scard.StateUnaware}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := r.ctx.GetStatusChange(rs, r.cfg.PollInterval)
		switch {
		case err == nil:
		case errors.Is(err, scard.ErrTimeout):
			continue
		default:
			r.log.Debug().Err(err).Msg("status change failed")
			if err := sleep(ctx, r.cfg.PollInterval); err != nil {
				return err
			}
			continue
		}

		st := rs[0].EventState
		rs[0].CurrentState = st
		if done(st) {
			return nil
		}
	}
}

// Connect connects to the tag on the reader, retrying up to the configured
// number of attempts.
func (r *Reader) Connect(ctx context.Context) (Card, error) {
	if r.ctx == nil {
		return nil, errClosed
	}
	var err error
	for i := 0; i < r.cfg.ConnectRetries; i++ {
		var card Card
		card, err = r.ctx.Connect(r.name, r.cfg.ShareMode, scard.ProtocolAny)
		if err == nil {
			r.log.Debug().Int("attempt", i+1).Msg("connected to tag")
			return card, nil
		}
		r.log.Debug().Err(err).Int("attempt", i+1).Msg("connect failed")
		if err := sleep(ctx, r.cfg.ConnectDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: connect to %s: %v", tagerr.ErrTransport, r.name, err)
}

// Recover releases the context, establishes a new one and selects the reader
// again, as after the reader was unplugged.
func (r *Reader) Recover() error {
	r.log.Info().Msg("attempting to recover reader connection")
	if r.ctx != nil {
		_ = r.ctx.Release()
	}
	ctx, err := r.establish()
	if err != nil {
		r.ctx = nil
		return err
	}
	r.ctx = ctx
	if err := r.selectReader(); err != nil {
		return fmt.Errorf("failed to rediscover readers: %w", err)
	}
	r.log.Info().Str("reader", r.name).Msg("recovered reader connection")
	return nil
}

// Close releases the PC/SC context.
func (r *Reader) Close() error {
	if r.ctx == nil {
		return nil
	}
	err := r.ctx.Release()
	r.ctx = nil
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
