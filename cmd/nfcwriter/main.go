// Command nfcwriter writes a URL built from the tag UID to every ISO15693
// tag placed on the reader.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"

	"github.com/laith43d/nfc-tools/internal/apdu"
	"github.com/laith43d/nfc-tools/internal/hexutil"
	"github.com/laith43d/nfc-tools/internal/pcsc"
	"github.com/laith43d/nfc-tools/internal/session"
)

const defaultURL = "https://dnd.qrand.me/r/%s"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		readerMatch = flag.String("reader", "", "use the first reader whose name contains this")
		debug       = flag.Bool("debug", false, "log every APDU step")
		modeFlag    = flag.String("mode", string(modeFormat), "format, empty or overwrite")
		urlTemplate = flag.String("url", defaultURL, "URL to write; %s is replaced by the tag UID")
		strictCC    = flag.Bool("strict-cc", false, "validate the capability container before overwriting")
		once        = flag.Bool("once", false, "write one tag and exit")
	)
	flag.Parse()

	log := newLogger(*debug)
	m, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := pcsc.Open(pcsc.WithMatch(*readerMatch), pcsc.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("open reader")
	}
	defer reader.Close()
	log.Info().Str("reader", reader.Name()).Str("mode", string(m)).Msg("waiting for tags")

	w := writer{
		mode:     m,
		template: *urlTemplate,
		log:      log,
		opts: []session.Option{
			session.WithLogger(log),
			session.WithReaderName(reader.Name()),
			session.WithStrictCC(*strictCC),
			session.WithProgress(func(p session.Progress) {
				log.Debug().Str("op", p.Op).Int("block", p.Block).Msgf("%d/%d blocks", p.Done, p.Total)
			}),
		},
	}
	for {
		if err := reader.WaitPresent(ctx); err != nil {
			return 0
		}
		card, err := reader.Connect(ctx)
		if err != nil {
			log.Error().Err(err).Msg("connect failed")
		} else {
			err = w.write(apdu.NewCard(card))
			_ = card.Disconnect(scard.LeaveCard)
		}
		if *once {
			return exitStatus(err)
		}
		if err := reader.WaitRemoval(ctx); err != nil {
			return 0
		}
	}
}

// exitStatus maps the outcome of a single -once write to the process status.
func exitStatus(err error) int {
	if err != nil {
		return 1
	}
	return 0
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

type mode string

const (
	modeFormat    mode = "format"
	modeEmpty     mode = "empty"
	modeOverwrite mode = "overwrite"
)

func parseMode(s string) (mode, error) {
	switch m := mode(s); m {
	case modeFormat, modeEmpty, modeOverwrite:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want format, empty or overwrite)", s)
	}
}

// tagURL fills the UID into template when it has a %s verb.
func tagURL(template, uidHex string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, uidHex)
	}
	return template
}

type writer struct {
	mode     mode
	template string
	opts     []session.Option
	log      zerolog.Logger
}

func (w writer) write(ch apdu.Channel) error {
	s := session.New(ch, w.opts...)
	uid, err := s.UID()
	if err != nil {
		w.log.Error().Err(err).Msg("get UID")
		return err
	}
	uidHex := hexutil.Encode(uid)
	w.log.Info().Str("uid", uidHex).Msg("tag detected")

	var res session.WriteResult
	url := tagURL(w.template, uidHex)
	switch w.mode {
	case modeFormat:
		res, err = s.FormatAndWrite(url)
	case modeEmpty:
		res, err = s.FormatEmpty()
	case modeOverwrite:
		res, err = s.OverwriteInPlace(url)
	}
	if err != nil {
		w.log.Error().Err(err).Stringer("result", res).Msg("write failed")
		return err
	}
	ev := w.log.Info().Stringer("result", res)
	if w.mode != modeEmpty {
		ev = ev.Str("url", url)
	}
	ev.Msg("tag written")
	return nil
}
