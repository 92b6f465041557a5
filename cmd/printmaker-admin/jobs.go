package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/target/printmaker/internal/bootstrap"
	"github.com/target/printmaker/internal/domain/job"
	"github.com/target/printmaker/internal/domain/model"
	"github.com/target/printmaker/internal/service"
)

type submitOptions struct {
	File  string
	Name  string
	User  string
	Queue string
	Wait  bool
}

type purgeOptions struct {
	MaxAge time.Duration
}

type refundOptions struct {
	JobID  string
	Revert bool
}

func parseSubmitFlags(args []string) (submitOptions, error) {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts submitOptions
	fs.StringVar(&opts.File, "file", "", "PostScript file to submit (\"-\" for stdin)")
	fs.StringVar(&opts.Name, "name", "", "Document name (defaults to the file name)")
	fs.StringVar(&opts.User, "user", "", "Submitting user")
	fs.StringVar(&opts.Queue, "queue", "", "Target queue")
	fs.BoolVar(&opts.Wait, "wait", true, "Wait for the job to print or fail")

	if err := fs.Parse(args); err != nil {
		return submitOptions{}, err
	}
	switch {
	case opts.File == "":
		return submitOptions{}, errors.New("--file is required")
	case opts.User == "":
		return submitOptions{}, errors.New("--user is required")
	case opts.Queue == "":
		return submitOptions{}, errors.New("--queue is required")
	}
	if opts.Name == "" && opts.File != "-" {
		opts.Name = filepath.Base(opts.File)
	}
	return opts, nil
}

func runSubmit(cmdCtx *commandContext, args []string) error {
	opts, err := parseSubmitFlags(args)
	if err != nil {
		return err
	}

	content := io.Reader(os.Stdin)
	if opts.File != "-" {
		f, openErr := os.Open(opts.File)
		if openErr != nil {
			return fmt.Errorf("open document: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		content = f
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		j, submitErr := engine.Pipeline.Submit(ctx, service.SubmitRequest{
			Name:    opts.Name,
			User:    opts.User,
			Queue:   opts.Queue,
			Content: content,
		})
		if submitErr != nil {
			return fmt.Errorf("submit: %w", submitErr)
		}
		if err := writef(os.Stdout, "%s\n", j.ID); err != nil {
			return err
		}
		if !opts.Wait {
			return nil
		}
		final, watchErr := followStages(ctx, os.Stdout, engine.Pipeline, j.ID)
		if watchErr != nil {
			return watchErr
		}
		if final.Kind == model.StageFailed {
			return fmt.Errorf("job %s failed: %s", j.ID, final.Message)
		}
		return nil
	})
}

func runStage(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("stage", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids := fs.Args()
	if len(ids) == 0 {
		return errors.New("at least one job id is required")
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		stages := make([]model.Stage, 0, len(ids))
		for _, id := range ids {
			st, err := engine.Pipeline.Stage(ctx, id)
			if err != nil {
				return fmt.Errorf("stage %s: %w", id, err)
			}
			stages = append(stages, st)
		}
		return printStages(os.Stdout, ids, stages)
	})
}

func runWatch(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one job id is required")
	}
	id := fs.Arg(0)

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		_, err := followStages(ctx, os.Stdout, engine.Pipeline, id)
		return err
	})
}

// stageWatcher is the subset of the pipeline used to follow a job.
type stageWatcher interface {
	Watch(ctx context.Context, id string) (func(), <-chan job.Update)
}

// followStages prints each stage of id until a terminal one and returns it.
func followStages(ctx context.Context, w io.Writer, watcher stageWatcher, id string) (model.Stage, error) {
	stop, updates := watcher.Watch(ctx, id)
	defer stop()

	var last model.Stage
	for u := range updates {
		if u.Err != nil {
			return last, fmt.Errorf("watch %s: %w", id, u.Err)
		}
		last = u.Stage
		if err := writef(w, "%s\t%s\n", u.Stage.Time.Format(time.RFC3339), u.Stage); err != nil {
			return last, err
		}
	}
	if err := ctx.Err(); err != nil && !last.Terminal() {
		return last, err
	}
	return last, nil
}

func printStages(w io.Writer, ids []string, stages []model.Stage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "JOB\tSTAGE\tSINCE"); err != nil {
		return fmt.Errorf("write stage header: %w", err)
	}
	for i, st := range stages {
		since := "-"
		if !st.Time.IsZero() {
			since = st.Time.Format(time.RFC3339)
		}
		if err := writef(tw, "%s\t%s\t%s\n", ids[i], st, since); err != nil {
			return fmt.Errorf("write stage row %q: %w", ids[i], err)
		}
	}
	return tw.Flush()
}

func parsePurgeFlags(args []string, defaultMaxAge time.Duration) (purgeOptions, error) {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := purgeOptions{MaxAge: defaultMaxAge}
	fs.DurationVar(&opts.MaxAge, "max-age", defaultMaxAge, "Purge jobs created longer ago than this")
	if err := fs.Parse(args); err != nil {
		return purgeOptions{}, err
	}
	if opts.MaxAge < 0 {
		return purgeOptions{}, errors.New("--max-age cannot be negative")
	}
	return opts, nil
}

func runPurge(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeFlags(args, cmdCtx.Config.Pipeline.Expiration)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		n, purgeErr := engine.Pipeline.Purge(ctx, opts.MaxAge)
		if purgeErr != nil {
			return fmt.Errorf("purge: %w", purgeErr)
		}
		cmdCtx.Logger.InfoContext(ctx, "purge complete", "flagged", n, "max_age", opts.MaxAge)
		return writef(os.Stdout, "purged %d jobs\n", n)
	})
}

func parseRefundFlags(args []string) (refundOptions, error) {
	fs := flag.NewFlagSet("refund", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts refundOptions
	fs.BoolVar(&opts.Revert, "revert", false, "Charge the job again")
	if err := fs.Parse(args); err != nil {
		return refundOptions{}, err
	}
	if fs.NArg() != 1 {
		return refundOptions{}, errors.New("exactly one job id is required")
	}
	opts.JobID = fs.Arg(0)
	return opts, nil
}

func runRefund(cmdCtx *commandContext, args []string) error {
	opts, err := parseRefundFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		ok, updateErr := engine.Jobs.Update(ctx, opts.JobID, model.SetRefunded(!opts.Revert))
		if updateErr != nil {
			return fmt.Errorf("refund %s: %w", opts.JobID, updateErr)
		}
		if !ok {
			return fmt.Errorf("refund %s: %w", opts.JobID, model.ErrJobNotFound)
		}
		cmdCtx.Logger.InfoContext(ctx, "refund updated", "job_id", opts.JobID, "refunded", !opts.Revert)
		return nil
	})
}
