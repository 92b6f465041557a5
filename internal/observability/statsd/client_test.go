package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":  "job_metric",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"slash/name/id": "slash_name_id",
		" . ":           "",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
}

func TestEncodeLine(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " printmaker "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	line, ok := encodeLine("printmaker", "pipeline.transition", "1", "c", global, local)
	require.True(t, ok)
	assert.Equal(t, "printmaker.pipeline.transition:1|c|#env:stage,result:success,service:printmaker", line)

	line, ok = encodeLine("", "pool.queued", "3", "g", nil, nil)
	require.True(t, ok)
	assert.Equal(t, "pool.queued:3|g", line)

	_, ok = encodeLine("printmaker", "  ", "1", "c", nil, nil)
	assert.False(t, ok)
}

func TestClient_WritesOverUDP(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	client, err := NewClient(Config{Enabled: true, Address: pc.LocalAddr().String()})
	require.NoError(t, err)
	defer client.Close()
	require.True(t, client.Enabled())

	client.Timing("purge.duration", 1500*time.Microsecond, map[string]string{"result": "success"})

	buf := make([]byte, 256)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "printmaker.purge.duration:1.5|ms|#result:success", string(buf[:n]))
}

func TestClient_CloseAndNil(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	assert.True(t, client.Enabled())
	require.NoError(t, client.Close())
	assert.False(t, client.Enabled())
	require.NoError(t, client.Close())
	client.Count("after.close", 1, nil)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
	nilClient.Gauge("nil", 1, nil)
}

func TestNewClient_DisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
}

func TestNewClient_DialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("pipeline.transition", 1, map[string]string{"stage": "printed"})
	r.Count("pipeline.transition", 1, map[string]string{"stage": "failed"})
	r.Count("pipeline.transition", 2, map[string]string{"stage": "printed"})
	r.Timing("pipeline.duration", 2*time.Second, nil)

	assert.InDelta(t, 3, r.Sum("pipeline.transition", map[string]string{"stage": "printed"}), 0)
	assert.InDelta(t, 4, r.Sum("pipeline.transition", nil), 0)
	assert.InDelta(t, 2000, r.Sum("pipeline.duration", nil), 0)
	assert.Len(t, r.Samples(), 4)
}
