// Package spool stores submitted documents on disk as xz streams and prepares plain
// working copies for analysis and transmission.
package spool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	"github.com/target/printmaker/internal/core"
)

// Extension is appended to job ids to form spool file names.
const Extension = ".ps.xz"

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Options configures New.
type Options struct {
	// Dir holds spool files. Required.
	Dir string
	// WorkDir holds decompressed working copies. Defaults to the system temp dir.
	WorkDir string
	Logger  *slog.Logger
}

// Dir is a core.Spool backed by a directory.
type Dir struct {
	dir     string
	workDir string
	logger  *slog.Logger
}

var _ core.Spool = (*Dir)(nil)

// New creates a spool over opts.Dir. The directory is created by EnsureDir.
func New(opts Options) (*Dir, error) {
	if opts.Dir == "" {
		return nil, errors.New("spool directory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{dir: opts.Dir, workDir: opts.WorkDir, logger: logger.With("component", "spool")}, nil
}

// EnsureDir creates the spool directory if it does not exist.
func (d *Dir) EnsureDir() error {
	if err := os.MkdirAll(d.dir, 0o750); err != nil {
		return fmt.Errorf("create spool dir %s: %w", d.dir, err)
	}
	return nil
}

// PathFor returns the spool file path for a job id.
func (d *Dir) PathFor(id string) string {
	return filepath.Join(d.dir, id+Extension)
}

// Write stores r at path, replacing any existing file. Content that is already an xz
// stream is stored verbatim; anything else is compressed. It returns the bytes written.
func (d *Dir) Write(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".incoming-*")
	if err != nil {
		return 0, fmt.Errorf("create spool file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	br := bufio.NewReader(r)
	head, _ := br.Peek(len(xzMagic))
	var n int64
	if bytes.Equal(head, xzMagic) {
		n, err = io.Copy(tmp, br)
	} else {
		n, err = compress(tmp, br)
	}
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write spool file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close spool file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("move spool file into place: %w", err)
	}
	return n, nil
}

// compress xz-encodes r into w and returns the number of compressed bytes.
func compress(w io.Writer, r io.Reader) (int64, error) {
	cw := &countingWriter{w: w}
	zw, err := xz.NewWriter(cw)
	if err != nil {
		return 0, fmt.Errorf("xz writer: %w", err)
	}
	if _, err := io.Copy(zw, r); err != nil {
		_ = zw.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return cw.n, nil
}

// Prepare writes a plain working copy of the spool file and returns its path.
// The caller removes it with Remove.
func (d *Dir) Prepare(ctx context.Context, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open spool file: %w", err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.CreateTemp(d.workDir, "printmaker-*.ps")
	if err != nil {
		return "", fmt.Errorf("create working file: %w", err)
	}
	outName := out.Name()

	if err := decompress(ctx, out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(outName)
		return "", fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(outName)
		return "", fmt.Errorf("close working file: %w", err)
	}
	return outName, nil
}

func decompress(ctx context.Context, w io.Writer, r io.Reader) error {
	br := bufio.NewReader(r)
	src := io.Reader(br)
	if head, _ := br.Peek(len(xzMagic)); bytes.Equal(head, xzMagic) {
		zr, err := xz.NewReader(br)
		if err != nil {
			return err
		}
		src = zr
	}
	_, err := io.Copy(w, &ctxReader{ctx: ctx, r: src})
	return err
}

// Remove deletes a spool or working file. A missing file is not an error.
func (d *Dir) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Size returns the size of path in bytes, or 0 if it cannot be read.
func (d *Dir) Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
