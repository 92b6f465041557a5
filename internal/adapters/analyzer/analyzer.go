// Package analyzer counts pages and colour pages of PostScript documents.
package analyzer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoPages is returned when a document yields no countable pages.
var ErrNoPages = errors.New("no pages found")

const (
	indicatorMonochrome = "/ProcessColorModel /DeviceGray"
	indicatorColour     = "/ProcessColorModel /DeviceCMYK"
)

// maxLine bounds a single scanned line; PostScript can embed long hex strings.
const maxLine = 4 << 20

// Monochrome scans the document for a process colour model declaration. The first
// declaration wins; documents without one are treated as monochrome.
func Monochrome(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()
	return monochrome(f)
}

func monochrome(r io.Reader) (bool, error) {
	sc := newScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, indicatorMonochrome) {
			return true, nil
		}
		if strings.Contains(line, indicatorColour) {
			return false, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("scan document: %w", err)
	}
	return true, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return sc
}
