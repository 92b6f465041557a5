package main

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/target/printmaker/config"
	"github.com/target/printmaker/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

func main() {
	logger := bootstrap.InitLogger()

	if len(os.Args) < 2 {
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			logger.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Run database migrations",
			run:         runMigrations,
		},
		"seed": {
			name:        "seed",
			description: "Upsert queues and destinations from a YAML seed file",
			run:         runSeed,
		},
		"submit": {
			name:        "submit",
			description: "Submit a PostScript document and optionally wait for the result",
			run:         runSubmit,
		},
		"stage": {
			name:        "stage",
			description: "Show the current stage of one or more jobs",
			run:         runStage,
		},
		"watch": {
			name:        "watch",
			description: "Stream stage changes of a job until it finishes",
			run:         runWatch,
		},
		"purge": {
			name:        "purge",
			description: "Flag expired jobs deleted and remove their spool files",
			run:         runPurge,
		},
		"set-policy": {
			name:        "set-policy",
			description: "Change the load balancing policy of a queue",
			run:         runSetPolicy,
		},
		"set-up": {
			name:        "set-up",
			description: "Mark a destination up or down",
			run:         runSetUp,
		},
		"refund": {
			name:        "refund",
			description: "Refund (or un-refund) the quota charged for a job",
			run:         runRefund,
		},
		"quota": {
			name:        "quota",
			description: "Show, set or clear a user's base quota",
			run:         runQuota,
		},
	}
}

func printUsage() error {
	if err := writef(os.Stdout, "Usage: printmaker-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(os.Stdout, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := cmds[name]
		if err := writef(os.Stdout, "  %-12s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}
