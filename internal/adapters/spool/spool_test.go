package spool

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const document = "%!PS-Adobe-3.0\n%%Pages: 2\n%%Page: 1 1\nshowpage\n%%Page: 2 2\nshowpage\n%%EOF\n"

func newSpool(t *testing.T) *Dir {
	t.Helper()
	root := t.TempDir()
	d, err := New(Options{Dir: filepath.Join(root, "spool"), WorkDir: root})
	require.NoError(t, err)
	require.NoError(t, d.EnsureDir())
	return d
}

func xzBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSpool_PlainContentIsCompressed(t *testing.T) {
	d := newSpool(t)
	path := d.PathFor("abc")
	assert.Equal(t, "abc.ps.xz", filepath.Base(path))

	n, err := d.Write(path, strings.NewReader(document))
	require.NoError(t, err)
	assert.Equal(t, n, d.Size(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, xzMagic))

	work, err := d.Prepare(context.Background(), path)
	require.NoError(t, err)
	defer d.Remove(work)
	got, err := os.ReadFile(work)
	require.NoError(t, err)
	assert.Equal(t, document, string(got))
}

func TestSpool_CompressedContentIsStoredVerbatim(t *testing.T) {
	d := newSpool(t)
	path := d.PathFor("xz")
	payload := xzBytes(t, document)

	n, err := d.Write(path, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.EqualValues(t, len(payload), n)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, raw)

	work, err := d.Prepare(context.Background(), path)
	require.NoError(t, err)
	got, err := os.ReadFile(work)
	require.NoError(t, err)
	assert.Equal(t, document, string(got))
}

func TestSpool_WriteReplacesExisting(t *testing.T) {
	d := newSpool(t)
	path := d.PathFor("dup")
	_, err := d.Write(path, strings.NewReader("first"))
	require.NoError(t, err)
	_, err = d.Write(path, strings.NewReader("second"))
	require.NoError(t, err)

	work, err := d.Prepare(context.Background(), path)
	require.NoError(t, err)
	got, err := os.ReadFile(work)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".incoming-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSpool_PrepareErrors(t *testing.T) {
	d := newSpool(t)
	_, err := d.Prepare(context.Background(), d.PathFor("missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := d.PathFor("corrupt")
	require.NoError(t, os.WriteFile(path, append(append([]byte{}, xzMagic...), "garbage"...), 0o600))
	_, err = d.Prepare(context.Background(), path)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Write(d.PathFor("ok"), strings.NewReader(document))
	require.NoError(t, err)
	_, err = d.Prepare(ctx, d.PathFor("ok"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpool_RemoveAndSize(t *testing.T) {
	d := newSpool(t)
	assert.NoError(t, d.Remove(d.PathFor("never")))
	assert.Zero(t, d.Size(d.PathFor("never")))
}

func TestNew_RequiresDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
