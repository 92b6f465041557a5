package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/target/printmaker/internal/core"
)

// DefaultGhostscriptPath is looked up on PATH.
const DefaultGhostscriptPath = "gs"

// Coverage is the ink coverage of one page, each channel in [0, 1].
type Coverage struct {
	C, M, Y, K float64
}

// Monochrome reports whether the page uses black ink only.
func (c Coverage) Monochrome() bool {
	return c.C == 0 && c.M == 0 && c.Y == 0
}

// GhostscriptOptions configures NewGhostscript.
type GhostscriptOptions struct {
	Path   string
	Logger *slog.Logger
}

// Ghostscript renders the document with the inkcov device and counts pages that use
// any colour ink. Documents declaring a gray process colour model report no colour pages.
type Ghostscript struct {
	path   string
	logger *slog.Logger
}

var _ core.DocumentAnalyzer = (*Ghostscript)(nil)

// NewGhostscript creates an analyzer that runs the gs binary.
func NewGhostscript(opts GhostscriptOptions) *Ghostscript {
	path := opts.Path
	if path == "" {
		path = DefaultGhostscriptPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ghostscript{path: path, logger: logger.With("component", "ghostscript")}
}

func (g *Ghostscript) Analyze(ctx context.Context, path string) (core.Analysis, error) {
	mono, err := Monochrome(path)
	if err != nil {
		return core.Analysis{}, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.path, "-q", "-dNOPAUSE", "-dBATCH", "-dSAFER", "-sDEVICE=inkcov", "-o", "-", path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		g.logger.WarnContext(ctx, "ghostscript failed", "error", err, "stderr", strings.TrimSpace(stderr.String()))
		return core.Analysis{}, fmt.Errorf("run ghostscript: %w", err)
	}

	pages, err := ParseInkCoverage(bytes.NewReader(out))
	if err != nil {
		return core.Analysis{}, err
	}
	analysis := Summarize(pages)
	if mono {
		analysis.ColourPageCount = 0
	}
	return analysis, nil
}

// Version returns the installed Ghostscript version.
func (g *Ghostscript) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, g.path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("ghostscript version: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ParseInkCoverage reads inkcov device output, one "C M Y K CMYK OK" line per page.
// Other lines are ignored.
func ParseInkCoverage(r io.Reader) ([]Coverage, error) {
	var pages []Coverage
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 || fields[4] != "CMYK" {
			continue
		}
		var vals [4]float64
		ok := true
		for i := range vals {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			pages = append(pages, Coverage{C: vals[0], M: vals[1], Y: vals[2], K: vals[3]})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read ink coverage: %w", err)
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}

// Summarize counts pages and colour pages.
func Summarize(pages []Coverage) core.Analysis {
	a := core.Analysis{PageCount: len(pages)}
	for _, p := range pages {
		if !p.Monochrome() {
			a.ColourPageCount++
		}
	}
	return a
}
