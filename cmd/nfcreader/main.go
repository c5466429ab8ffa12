// Command nfcreader prints the UID and NDEF records of every ISO15693 tag
// placed on the reader. "nfcreader demo" prints the ideal tag layout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
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
	"github.com/laith43d/nfc-tools/internal/tlv"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "demo" {
		if err := showIdealFormat(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var (
		readerMatch = flag.String("reader", "", "use the first reader whose name contains this")
		debug       = flag.Bool("debug", false, "log every APDU step")
		dump        = flag.Bool("dump", false, "print the memory image, CC and TLV layout")
		strictCC    = flag.Bool("strict-cc", false, "validate the capability container before scanning")
		once        = flag.Bool("once", false, "read one tag and exit")
	)
	flag.Parse()

	log := newLogger(*debug)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := pcsc.Open(pcsc.WithMatch(*readerMatch), pcsc.WithExclusive(), pcsc.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("open reader")
	}
	defer reader.Close()

	fmt.Printf("📱 Using reader: %s\n", reader.Name())
	fmt.Printf("🔄 Waiting for NFC tags... (place tag on reader)\n\n")

	opts := []session.Option{
		session.WithLogger(log),
		session.WithReaderName(reader.Name()),
		session.WithStrictCC(*strictCC),
	}
	for {
		if err := reader.WaitPresent(ctx); err != nil {
			break
		}
		card, err := reader.Connect(ctx)
		if err != nil {
			log.Error().Err(err).Msg("connect failed")
		} else {
			err = printTag(os.Stdout, session.New(apdu.NewCard(card), opts...), *dump)
			_ = card.Disconnect(scard.LeaveCard)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
			}
		}
		if *once {
			break
		}

		fmt.Printf("\n🔄 Remove tag and place another to analyze...\n\n")
		if err := reader.WaitRemoval(ctx); err != nil {
			break
		}
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

// printTag reads the tag behind s and writes a report to w. The memory dump
// is printed even when decoding fails.
func printTag(w io.Writer, s *session.Session, dump bool) error {
	tag, err := s.Read()
	if tag.UIDHex != "" {
		fmt.Fprintf(w, "🏷️  UID: %s (reversed %s)\n", tag.UIDHex, hexutil.Encode(hexutil.Reverse(tag.UID)))
	}
	if dump && tag.Memory != nil {
		dumpMemory(w, tag.Memory, s.BlockSize())
	}
	if err != nil {
		return err
	}
	for i, rec := range tag.Records {
		fmt.Fprintf(w, "📝 Record %d: %s\n", i+1, rec)
	}
	return nil
}

func dumpMemory(w io.Writer, mem []byte, blockSize int) {
	fmt.Fprintf(w, "\n%s\nMEMORY (%d bytes, %d blocks)\n%s\n", rule, len(mem), len(mem)/blockSize, rule)
	for i := 0; i+blockSize <= len(mem); i += blockSize {
		block := mem[i : i+blockSize]
		fmt.Fprintf(w, "Block %02d: % X  %s\n", i/blockSize, block, ascii(block))
	}

	fmt.Fprintln(w)
	cc, err := tlv.ParseCC(mem)
	switch {
	case err != nil:
	case !cc.Present():
		fmt.Fprintln(w, "⚠️  No capability container in block 0")
	default:
		fmt.Fprintf(w, "%s read=%t write=%t\n", cc, cc.ReadAccess(), cc.WriteAccess())
		if err := cc.Validate(); err != nil {
			fmt.Fprintf(w, "⚠️  %v\n", err)
		}
	}
	fmt.Fprint(w, tlv.Scanner{}.Describe(mem, blockSize))
	fmt.Fprintln(w, rule)
}

var rule = strings.Repeat("=", 60)

func ascii(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 0x20 && c <= 0x7E {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
