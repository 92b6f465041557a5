package analyzer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/target/printmaker/internal/core"
)

// DSC reads Document Structuring Convention comments. Pages are counted from "%%Page:"
// markers, falling back to the "%%Pages:" header. Colour documents count every page as colour.
type DSC struct{}

var _ core.DocumentAnalyzer = DSC{}

func (DSC) Analyze(ctx context.Context, path string) (core.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.Analysis{}, err
	}
	defer func() { _ = f.Close() }()

	var (
		markers  int
		declared = -1
		mono     = true
		decided  bool
	)
	sc := newScanner(f)
	for sc.Scan() {
		if markers%64 == 0 {
			if err := ctx.Err(); err != nil {
				return core.Analysis{}, err
			}
		}
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "%%Page:"):
			markers++
		case strings.HasPrefix(line, "%%Pages:") && declared < 0:
			if n, convErr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "%%Pages:"))); convErr == nil {
				declared = n
			}
		}
		if !decided {
			if strings.Contains(line, indicatorMonochrome) {
				decided = true
			} else if strings.Contains(line, indicatorColour) {
				mono, decided = false, true
			}
		}
	}
	if err := sc.Err(); err != nil {
		return core.Analysis{}, fmt.Errorf("scan document: %w", err)
	}

	pages := markers
	if pages == 0 && declared > 0 {
		pages = declared
	}
	if pages == 0 {
		return core.Analysis{}, ErrNoPages
	}
	colour := 0
	if !mono {
		colour = pages
	}
	return core.Analysis{PageCount: pages, ColourPageCount: colour}, nil
}
