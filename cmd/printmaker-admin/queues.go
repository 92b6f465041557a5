package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/bootstrap"
	"github.com/target/printmaker/internal/domain/model"
)

type migrateOptions struct {
	Timeout time.Duration
}

type setUpOptions struct {
	Destination string
	Down        bool
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}
	if cmdCtx.Config.DB.Driver == config.DBDriverMemory {
		cmdCtx.Logger.Info("memory storage has no schema, nothing to migrate")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	db, _, err := connectInfra(&connectInfraOptions{Logger: cmdCtx.Logger, Config: &cmdCtx.Config})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.Info("running database migrations")
	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runSeed(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fs.String("file", cmdCtx.Config.DB.SeedFile, "YAML seed file of queues and destinations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("--file is required")
	}
	if cmdCtx.Config.DB.Driver == config.DBDriverMemory {
		cmdCtx.Logger.Warn("memory storage does not outlive this command; set DB_SEED_FILE for the daemon instead")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		return bootstrap.ApplySeedFile(ctx, engine.Queues, *file, cmdCtx.Logger)
	})
}

func runSetPolicy(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("set-policy", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: set-policy <queue> <policy>")
	}
	queue, policy := fs.Arg(0), fs.Arg(1)

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		changed, err := engine.Manager.SetPolicy(ctx, queue, policy)
		if err != nil {
			return fmt.Errorf("set policy: %w", err)
		}
		if !changed {
			return writef(os.Stdout, "queue %s already uses %s\n", queue, policy)
		}
		return writef(os.Stdout, "queue %s now uses %s\n", queue, policy)
	})
}

func parseSetUpFlags(args []string) (setUpOptions, error) {
	fs := flag.NewFlagSet("set-up", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts setUpOptions
	fs.BoolVar(&opts.Down, "down", false, "Mark the destination down instead of up")
	if err := fs.Parse(args); err != nil {
		return setUpOptions{}, err
	}
	if fs.NArg() != 1 {
		return setUpOptions{}, errors.New("exactly one destination id is required")
	}
	opts.Destination = fs.Arg(0)
	return opts, nil
}

func runSetUp(cmdCtx *commandContext, args []string) error {
	opts, err := parseSetUpFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		found, setErr := engine.Queues.SetDestinationUp(ctx, opts.Destination, !opts.Down)
		if setErr != nil {
			return fmt.Errorf("set destination state: %w", setErr)
		}
		if !found {
			return fmt.Errorf("%s: %w", opts.Destination, model.ErrDestinationNotFound)
		}
		cmdCtx.Logger.InfoContext(ctx, "destination updated", "destination", opts.Destination, "up", !opts.Down)
		return nil
	})
}
