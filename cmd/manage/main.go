package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/alisaviation/metricboard/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		logger.Log.Error("Command failed", zap.Error(err))
		logger.Log.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command. Without a command it
// prints the help listing.
func run(ctx context.Context, args []string, w io.Writer) error {
	m := &manage{ctx: ctx}
	parser := flags.NewParser(&m.opts, flags.HelpFlag)
	parser.SubcommandsOptional = true
	if err := addCommands(parser, m); err != nil {
		return err
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		if flags.WroteHelp(err) {
			fmt.Fprintln(w, err)
			return nil
		}
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			parser.WriteHelp(w)
		}
		return err
	}
	if parser.Active == nil {
		if len(rest) > 0 {
			parser.WriteHelp(w)
			return fmt.Errorf("unknown argument(s): %v", rest)
		}
		parser.WriteHelp(w)
	}
	return nil
}

func addCommands(parser *flags.Parser, m *manage) error {
	if _, err := parser.AddCommand("export", "Export every metric to a seed file", "", &ExportCommand{owner: m}); err != nil {
		return fmt.Errorf("register export command: %w", err)
	}
	if _, err := parser.AddCommand("import", "Import a seed file, skipping ids that already exist", "", &ImportCommand{owner: m}); err != nil {
		return fmt.Errorf("register import command: %w", err)
	}
	return nil
}
