package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashv/internal/domain"
)

func TestFormat_AddedCarriesService(t *testing.T) {
	msg, err := Format(domain.ServiceAdded(domain.Service{ID: "101-8096", Name: "Jellyfin", Port: 8096}))
	require.NoError(t, err)

	s := string(msg)
	assert.True(t, strings.HasPrefix(s, "event: service:added\ndata: {"))
	assert.Contains(t, s, `"id":"101-8096"`)
	assert.Contains(t, s, `"name":"Jellyfin"`)
	assert.True(t, strings.HasSuffix(s, "}\n\n"))
}

func TestFormat_RemovedCarriesRef(t *testing.T) {
	msg, err := Format(domain.ServiceRemoved(domain.ServiceRef{ID: "300-80", Name: "old-app"}))
	require.NoError(t, err)

	assert.Equal(t, "event: service:removed\ndata: {\"id\":\"300-80\",\"name\":\"old-app\"}\n\n", string(msg))
}

func startHub(t *testing.T, keepAlive time.Duration) (*Hub, *httptest.Server) {
	t.Helper()
	h := New()
	h.SetKeepAlive(keepAlive)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, srv
}

func connect(t *testing.T, srv *httptest.Server) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)
	_, _ = r.ReadString('\n')

	return r, func() {
		cancel()
		resp.Body.Close()
	}
}

func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestHub_DeliversEventsToClients(t *testing.T) {
	h, srv := startHub(t, 0)
	r, closeConn := connect(t, srv)
	defer closeConn()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	h.Publish(domain.ServiceUpdated(domain.Service{ID: "101-8096", Name: "Jellyfin"}))

	frame := readFrame(t, r)
	require.Len(t, frame, 2)
	assert.Equal(t, "event: service:updated", frame[0])
	assert.Contains(t, frame[1], `"id":"101-8096"`)
}

func TestHub_KeepAlive(t *testing.T) {
	_, srv := startHub(t, 20*time.Millisecond)
	r, closeConn := connect(t, srv)
	defer closeConn()

	assert.Equal(t, []string{": keepalive"}, readFrame(t, r))
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	h, srv := startHub(t, 0)
	_, closeConn := connect(t, srv)

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	closeConn()
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}
