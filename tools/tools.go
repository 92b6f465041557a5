//go:build tools

// Package tools documents development tool dependencies.
// These tools are run through `go run` or installed with `go install`; they are not
// imported by the module.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the core ports
//   Run: go generate ./internal/mocks
//   Module: go.uber.org/mock (version pinned by go.mod)
//
// golangci-lint - static analysis
//   Install: go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
