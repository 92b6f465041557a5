package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/target/printmaker/internal/core"
	"github.com/target/printmaker/internal/domain/model"
)

// Validation is the outcome of a Validator. The zero value is valid.
type Validation struct {
	// Message is the failure label recorded when the request is rejected.
	Message string
}

// Valid accepts a request.
func Valid() Validation { return Validation{} }

// Invalid rejects a request with msg as its failure label.
func Invalid(msg string) Validation { return Validation{Message: msg} }

// OK reports whether the request was accepted.
func (v Validation) OK() bool { return v.Message == "" }

// Validator inspects a processed request before transmission. An error means the check itself
// could not run and is recorded under its error category.
type Validator func(ctx context.Context, req *model.PrintRequest) (Validation, error)

// Chain runs validators in order and stops at the first rejection or error.
// Nil validators are skipped.
func Chain(validators ...Validator) Validator {
	return func(ctx context.Context, req *model.PrintRequest) (Validation, error) {
		for _, v := range validators {
			if v == nil {
				continue
			}
			res, err := v(ctx, req)
			if err != nil || !res.OK() {
				return res, err
			}
		}
		return Valid(), nil
	}
}

// AllowAll accepts every request.
func AllowAll(context.Context, *model.PrintRequest) (Validation, error) {
	return Valid(), nil
}

// QuotaValidator rejects requests whose cost is not strictly below the user's remaining quota.
func QuotaValidator(jobs core.JobStore, quota core.QuotaSource) Validator {
	return func(ctx context.Context, req *model.PrintRequest) (Validation, error) {
		if jobs == nil || quota == nil {
			return Validation{}, errors.New("quota validator is not configured")
		}
		base, err := quota.BaseQuota(ctx, req.Job.User)
		if err != nil {
			return Validation{}, fmt.Errorf("base quota: %w", err)
		}
		used, err := jobs.TotalQuotaUsed(ctx, req.Job.User)
		if err != nil {
			return Validation{}, fmt.Errorf("quota used: %w", err)
		}
		if !req.HasSufficientQuota(base - used) {
			return Invalid(model.FailureInsufficientQuota), nil
		}
		return Valid(), nil
	}
}
