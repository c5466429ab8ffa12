// Command uid copies the UID of every tag placed on the reader to the
// clipboard and, unless -no-paste is given, pastes it followed by Enter.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/laith43d/nfc-tools/internal/pcsc"
	"github.com/laith43d/nfc-tools/internal/uidservice"
)

func main() {
	flag.Usage = printUsage
	cfg, testMode, readerMatch, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := cfg.Logger(os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := pcsc.Open(pcsc.WithMatch(readerMatch), pcsc.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	service, err := uidservice.New(cfg, reader, uidservice.WithLogger(log))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if testMode {
		log.Info().Msg("running in test mode, will read one card and exit")
		uid, err := service.ReadOnce(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Test failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(uid)
		return
	}

	log.Info().Msg("place NFC tags on the reader to copy UIDs to clipboard")
	if err := service.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Service failed: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (cfg uidservice.Config, testMode bool, reader string, err error) {
	cfg = uidservice.DefaultConfig()
	format := fs.String("format", string(cfg.UIDFormat), "UID format: "+formatList())
	noPaste := fs.Bool("no-paste", false, "disable automatic paste+enter")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.BoolVar(&testMode, "test", false, "read one card and exit")
	fs.StringVar(&reader, "reader", "", "use the first reader whose name contains this")
	if err := fs.Parse(args); err != nil {
		return cfg, false, "", err
	}

	cfg.UIDFormat, err = uidservice.ParseFormat(*format)
	if err != nil {
		return cfg, false, "", fmt.Errorf("invalid format: %s. Use: %s", *format, formatList())
	}
	cfg.AutoPaste = !*noPaste
	if *debug {
		cfg.LogLevel = "debug"
	}
	return cfg, testMode, reader, nil
}

func formatList() string {
	names := make([]string, len(uidservice.Formats))
	for i, f := range uidservice.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func printUsage() {
	fmt.Fprintf(flag.CommandLine.Output(), `NFC UID to Clipboard Service

Usage: %s [options]

Options:
`, os.Args[0])
	flag.PrintDefaults()
	fmt.Fprintf(flag.CommandLine.Output(), `
Examples:
  %[1]s                           # Run as service with default settings
  %[1]s -format hex-reversed      # Use reversed hex format
  %[1]s -format decimal-reversed  # Reversed bytes as a decimal number
  %[1]s -no-paste                 # Only copy to clipboard, don't auto-paste+enter
  %[1]s -test                     # Test mode - read one card and exit
`, os.Args[0])
}
