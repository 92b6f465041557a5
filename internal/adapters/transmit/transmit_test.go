package transmit

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/printmaker/internal/domain/model"
)

type lookupFunc func(ctx context.Context, id string) (*model.Destination, error)

func (f lookupFunc) GetDestination(ctx context.Context, id string) (*model.Destination, error) {
	return f(ctx, id)
}

func staticLookup(dests ...*model.Destination) lookupFunc {
	return func(_ context.Context, id string) (*model.Destination, error) {
		for _, d := range dests {
			if d.ID == id {
				return d, nil
			}
		}
		return nil, model.ErrDestinationNotFound
	}
}

func workFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "work.ps")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAddress(t *testing.T) {
	tests := map[string]*model.Destination{
		"10.0.0.5:9100":      {ID: "p1", Address: "10.0.0.5"},
		"printer.local:9101": {ID: "p1", Address: "printer.local:9101"},
		"p2:9100":            {ID: "p2"},
		"[fe80::1]:9100":     {ID: "p3", Address: "fe80::1"},
	}
	for want, d := range tests {
		assert.Equal(t, want, Address(d))
	}
}

func TestLog_Send(t *testing.T) {
	ok, err := NewLog(nil).Send(context.Background(), &model.PrintRequest{Job: model.Job{ID: "j"}, Destination: "p1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSocket_Send(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- string(b)
	}()

	tx, err := NewSocket(SocketOptions{Destinations: staticLookup(&model.Destination{ID: "p1", Address: ln.Addr().String()})})
	require.NoError(t, err)

	ok, err := tx.Send(context.Background(), &model.PrintRequest{
		Job: model.Job{ID: "j"}, Destination: "p1", File: workFile(t, "%!PS\nshowpage\n"),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "%!PS\nshowpage\n", <-received)
}

func TestSocket_UnreachablePrinterIsNotAnError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	tx, err := NewSocket(SocketOptions{Destinations: staticLookup(&model.Destination{ID: "p1", Address: addr})})
	require.NoError(t, err)
	ok, err := tx.Send(context.Background(), &model.PrintRequest{Destination: "p1", File: workFile(t, "x")})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSocket_UnknownDestination(t *testing.T) {
	tx, err := NewSocket(SocketOptions{Destinations: staticLookup()})
	require.NoError(t, err)
	_, err = tx.Send(context.Background(), &model.PrintRequest{Destination: "ghost", File: workFile(t, "x")})
	assert.ErrorIs(t, err, model.ErrDestinationNotFound)

	_, err = NewSocket(SocketOptions{})
	assert.Error(t, err)
}
