// Package uidservice copies the UID of every tag placed on the reader to the
// clipboard and optionally pastes it into the focused window.
package uidservice

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/atotto/clipboard"
	"github.com/ebfe/scard"
	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/apdu"
	"github.com/laith43d/nfc-tools/internal/pcsc"
	"github.com/laith43d/nfc-tools/internal/session"
)

// Reader is the reader surface the service needs. *pcsc.Reader satisfies it.
type Reader interface {
	Name() string
	WaitPresent(ctx context.Context) error
	WaitRemoval(ctx context.Context) error
	Connect(ctx context.Context) (pcsc.Card, error)
	Recover() error
}

// Paster types the clipboard content into the focused window.
type Paster interface {
	Paste(ctx context.Context) error
}

// Service is the background UID service.
type Service struct {
	cfg    Config
	reader Reader
	copy   func(string) error
	paster Paster
	log    zerolog.Logger
}

// Option is a functional option for New.
type Option func(*Service)

// WithClipboard replaces clipboard.WriteAll.
func WithClipboard(fn func(string) error) Option {
	return func(s *Service) {
		s.copy = fn
	}
}

// WithPaster replaces the OS keyboard paster.
func WithPaster(p Paster) Option {
	return func(s *Service) {
		s.paster = p
	}
}

// WithLogger sets the logger. Defaults to zerolog.Nop(); see Config.Logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// New validates cfg and returns a service reading from reader.
func New(cfg Config, reader Reader, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:    cfg,
		reader: reader,
		copy:   clipboard.WriteAll,
		paster: keyboardPaster{goos: runtime.GOOS},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run processes tags until ctx is done. Reader failures trigger a recovery
// attempt; Run returns nil on cancellation.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().
		Str("reader", s.reader.Name()).
		Bool("auto_paste", s.cfg.AutoPaste).
		Str("format", string(s.cfg.UIDFormat)).
		Msgf("starting %s", s.cfg.ServiceName)

	for {
		if _, err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			s.log.Warn().Err(err).Msg("card processing error")
			if err := s.reader.Recover(); err != nil {
				s.log.Error().Err(err).Msg("reader recovery failed")
				if err := sleep(ctx, s.cfg.RetryInterval); err != nil {
					break
				}
			}
		}
		if err := sleep(ctx, s.cfg.ReadInterval); err != nil {
			break
		}
	}
	s.log.Info().Msg("service stopped")
	return nil
}

// Cycle waits for a tag, handles its UID and waits for it to leave.
func (s *Service) Cycle(ctx context.Context) (string, error) {
	uid, err := s.ReadOnce(ctx)
	if err != nil {
		return "", err
	}
	rctx, cancel := context.WithTimeout(ctx, s.cfg.RemovalTimeout)
	defer cancel()
	if err := s.reader.WaitRemoval(rctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return uid, err
	}
	return uid, nil
}

// ReadOnce waits for a tag, reads its UID and hands it to Handle.
func (s *Service) ReadOnce(ctx context.Context) (string, error) {
	if err := s.reader.WaitPresent(ctx); err != nil {
		return "", err
	}
	card, err := s.reader.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer card.Disconnect(scard.LeaveCard)

	uid, err := session.New(apdu.NewCard(card),
		session.WithReaderName(s.reader.Name()),
		session.WithLogger(s.log),
	).UID()
	if err != nil {
		return "", err
	}
	return s.Handle(ctx, uid)
}

// Handle formats uid, copies it to the clipboard and pastes it when
// AutoPaste is set. A failed paste is logged and not returned.
func (s *Service) Handle(ctx context.Context, uid []byte) (string, error) {
	formatted, err := FormatUID(uid, s.cfg.UIDFormat)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("uid", formatted).Msg("detected NFC UID")

	if err := s.copy(formatted); err != nil {
		return formatted, fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	s.log.Debug().Msg("copied UID to clipboard")

	if s.cfg.AutoPaste {
		if err := s.paster.Paste(ctx); err != nil {
			s.log.Warn().Err(err).Msg("auto-paste failed")
		} else {
			s.log.Debug().Msg("auto-pasted UID and pressed enter")
		}
	}
	return formatted, nil
}
