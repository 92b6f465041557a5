package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/target/printmaker/internal/bootstrap"
	"github.com/target/printmaker/internal/data"
)

type quotaOptions struct {
	User  string
	Set   int
	Clear bool
}

var errQuotaReadOnly = errors.New("base quotas can only be changed with QUOTA_SOURCE=redis")

func parseQuotaFlags(args []string) (quotaOptions, error) {
	fs := flag.NewFlagSet("quota", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := quotaOptions{Set: -1}
	fs.IntVar(&opts.Set, "set", -1, "Store a new base quota for the user")
	fs.BoolVar(&opts.Clear, "clear", false, "Remove the stored base quota so the default applies")
	if err := fs.Parse(args); err != nil {
		return quotaOptions{}, err
	}
	if fs.NArg() != 1 {
		return quotaOptions{}, errors.New("exactly one user is required")
	}
	if opts.Clear && opts.Set >= 0 {
		return quotaOptions{}, errors.New("--set and --clear are mutually exclusive")
	}
	if opts.Set < -1 {
		return quotaOptions{}, errors.New("--set cannot be negative")
	}
	opts.User = fs.Arg(0)
	return opts, nil
}

func runQuota(cmdCtx *commandContext, args []string) error {
	opts, err := parseQuotaFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	return withEngine(cmdCtx, func(_ context.Context, engine *bootstrap.Engine) error {
		if opts.Set >= 0 || opts.Clear {
			repo, ok := engine.Quota.(*data.RedisQuotaRepo)
			if !ok {
				return errQuotaReadOnly
			}
			if opts.Clear {
				if _, clearErr := repo.ClearBaseQuota(ctx, opts.User); clearErr != nil {
					return fmt.Errorf("clear quota: %w", clearErr)
				}
			} else if setErr := repo.SetBaseQuota(ctx, opts.User, opts.Set); setErr != nil {
				return fmt.Errorf("set quota: %w", setErr)
			}
		}

		base, baseErr := engine.Quota.BaseQuota(ctx, opts.User)
		if baseErr != nil {
			return fmt.Errorf("base quota: %w", baseErr)
		}
		used, usedErr := engine.Jobs.TotalQuotaUsed(ctx, opts.User)
		if usedErr != nil {
			return fmt.Errorf("quota used: %w", usedErr)
		}
		return printQuota(os.Stdout, opts.User, base, used)
	})
}

func printQuota(w io.Writer, user string, base, used int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "USER\tBASE\tUSED\tREMAINING"); err != nil {
		return fmt.Errorf("write quota header: %w", err)
	}
	if err := writef(tw, "%s\t%d\t%d\t%d\n", user, base, used, base-used); err != nil {
		return fmt.Errorf("write quota row: %w", err)
	}
	return tw.Flush()
}
