package statsd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  mmk_shell  ":        "mmk_shell",
		"..api..request..":     "api.request",
		".":                    "",
		"":                     "",
		"Proxy Request/Status": "proxy_request_status",
		"auth.failure-count":   "auth.failure-count",
	}
	for input, want := range tests {
		assert.Equal(t, want, metricName(input), "metricName(%q)", input)
	}
}

func TestTagPart(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a_b_c", tagPart(" a|b,c "))
	assert.Equal(t, "GET", tagPart("GET"))
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *net.UDPConn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 512)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestClient_WritesLines(t *testing.T) {
	agent := listen(t)
	client, err := NewClient(context.Background(), Config{
		Address: agent.LocalAddr().String(),
		Prefix:  "mmk_shell",
		Tags:    map[string]string{"env": "test", "instance": "a"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.Count("api.request", 1, map[string]string{"status": "2xx", "instance": "b"})
	assert.Equal(t, "mmk_shell.api.request:1|c|#env:test,instance:b,status:2xx", read(t, agent))

	client.Gauge("log.cache_size", 200, nil)
	assert.Equal(t, "mmk_shell.log.cache_size:200|g|#env:test,instance:a", read(t, agent))

	client.Timing("startup", 1500*time.Microsecond, map[string]string{"result": "ok"})
	assert.Equal(t, "mmk_shell.startup:1.5|ms|#env:test,instance:a,result:ok", read(t, agent))
}

func TestClient_LineWithoutTags(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "reload:1|c", c.Line("reload", "1", "c", nil))
	assert.Empty(t, c.Line(" .. ", "1", "c", nil))
	assert.Equal(t, "reload:1|c|#flag", c.Line("reload", "1", "c", map[string]string{"flag": ""}))
}

func TestClient_CloseDropsWrites(t *testing.T) {
	agent := listen(t)
	client, err := NewClient(context.Background(), Config{Address: agent.LocalAddr().String()})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	client.Count("after_close", 1, nil)

	require.NoError(t, agent.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = agent.ReadFromUDP(make([]byte, 64))
	require.Error(t, err)
}

func TestNewClient_RequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Address: "  "})
	require.Error(t, err)
}
