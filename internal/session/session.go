// Package session runs the tag pipelines: reading the UID and NDEF records,
// formatting and writing a URL, and overwriting the NDEF TLV in place.
//
// A Session owns its card channel. Calls on one Session are serialised; a
// channel must not be shared with anything else while a Session uses it.
// Nothing here times out: an unresponsive reader blocks the call until the
// transport underneath gives up.
//
// Every operation returns either its result or a *tagerr.Error naming the
// operation, the reader and the cause. Failed writes are not rolled back.
package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/apdu"
	"github.com/laith43d/nfc-tools/internal/blockio"
	"github.com/laith43d/nfc-tools/internal/hexutil"
	"github.com/laith43d/nfc-tools/internal/ndefcodec"
	"github.com/laith43d/nfc-tools/internal/syncutil"
	"github.com/laith43d/nfc-tools/internal/tagerr"
	"github.com/laith43d/nfc-tools/internal/tlv"
)

var errNoUID = fmt.Errorf("%w: reader returned no UID", tagerr.ErrFraming)

// Session drives one tag through one card channel.
type Session struct {
	ch      apdu.Channel
	driver  *blockio.Driver
	cfg     Config
	log     zerolog.Logger
	scanner tlv.Scanner
	mu      syncutil.Mutex
}

// New returns a session over ch.
func New(ch apdu.Channel, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.Logger
	if cfg.ReaderName != "" {
		log = log.With().Str("reader", cfg.ReaderName).Logger()
	}
	return &Session{
		ch: ch,
		driver: blockio.New(ch,
			blockio.WithBlockSize(cfg.BlockSize),
			blockio.WithProbeCounts(cfg.ProbeCounts...),
			blockio.WithLogger(log),
		),
		cfg:     cfg,
		log:     log,
		scanner: tlv.Scanner{StrictCC: cfg.StrictCC},
	}
}

// BlockSize returns the block size used for reads and writes.
func (s *Session) BlockSize() int {
	return s.cfg.BlockSize
}

// Tag is the result of Read.
type Tag struct {
	UIDHex  string
	UID     []byte
	Records []string
	Memory  []byte
}

// UID returns the tag identifier as sent by the chip.
func (s *Session) UID() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, err := s.uid()
	if err != nil {
		return nil, s.fail("uid", err)
	}
	return uid, nil
}

func (s *Session) uid() ([]byte, error) {
	uid, err := apdu.Transmit(s.ch, apdu.GetUIDCommand())
	if err != nil {
		return nil, err
	}
	if len(uid) == 0 {
		return nil, errNoUID
	}
	return uid, nil
}

// Read fetches the UID and the memory image, then decodes the NDEF message.
func (s *Session) Read() (Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uid, err := s.uid()
	if err != nil {
		return Tag{}, s.fail("read", err)
	}
	tag := Tag{UID: uid, UIDHex: hexutil.Encode(uid)}
	s.log.Debug().Str("uid", tag.UIDHex).Msg("tag UID")

	mem, err := s.driver.ReadAll()
	if err != nil {
		return tag, s.fail("read", err)
	}
	tag.Memory = mem
	s.log.Debug().Int("bytes", len(mem)).Msg("memory read")

	payload, err := s.scanner.Extract(mem)
	if err != nil {
		return tag, s.fail("read", err)
	}
	msg, err := ndefcodec.Decode(payload)
	if err != nil {
		return tag, s.fail("read", err)
	}
	for i, rec := range msg.Records {
		str, err := ndefcodec.RecordString(rec)
		if err != nil {
			return tag, s.fail("read", err)
		}
		s.log.Debug().Int("record", i).Str("value", str).Msg("record decoded")
		tag.Records = append(tag.Records, str)
	}
	return tag, nil
}

func (s *Session) fail(op string, err error) error {
	te := tagerr.New(op, s.cfg.ReaderName, err)
	s.log.Warn().Err(err).Str("op", op).Stringer("kind", te.Kind).Msg("tag operation failed")
	return te
}
