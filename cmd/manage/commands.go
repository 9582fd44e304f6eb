package main

import (
	"context"
	"fmt"

	"github.com/alisaviation/metricboard/internal/config"
	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/seed"
	"github.com/alisaviation/metricboard/internal/storage"
)

// manage carries the parsed global options into the commands.
type manage struct {
	ctx  context.Context
	opts config.ManageOptions
}

// withSession initializes logging, opens the store with its schema in place
// and hands a session to fn.
func (m *manage) withSession(fn func(ctx context.Context, sess storage.Session) error) error {
	if err := logger.Initialize(m.opts.Logging); err != nil {
		return err
	}
	store, err := storage.Open(m.ctx, m.opts.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(m.ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	sess, err := store.Session(m.ctx)
	if err != nil {
		return fmt.Errorf("acquire session: %w", err)
	}
	defer sess.Close()
	return fn(m.ctx, sess)
}

type ExportCommand struct {
	owner *manage
	File  string `short:"f" long:"file" description:"Seed file to write" default:"seed_data.json"`
}

func (cmd *ExportCommand) Execute(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown argument(s): %v", args)
	}
	return cmd.owner.withSession(func(ctx context.Context, sess storage.Session) error {
		_, err := seed.Export(ctx, sess, cmd.File)
		return err
	})
}

type ImportCommand struct {
	owner *manage
	File  string `short:"f" long:"file" description:"Seed file to read" default:"seed_data.json"`
}

func (cmd *ImportCommand) Execute(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unknown argument(s): %v", args)
	}
	return cmd.owner.withSession(func(ctx context.Context, sess storage.Session) error {
		_, err := seed.Import(ctx, sess, cmd.File)
		return err
	})
}
