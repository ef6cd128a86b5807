package sync

import (
	"bufio"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, hub *Hub) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", hub)
	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	require.Eventually(t, func() bool { return srv.ListenAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	t.Cleanup(func() {
		require.NoError(t, srv.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return srv
}

func dialFeed(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn, bufio.NewReader(conn)
}

func readLine(t *testing.T, r *bufio.Reader, v any) {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(line)), v))
}

func TestServer_PublishToTCPFollower(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub)
	_, r := dialFeed(t, srv)

	var welcome Welcome
	readLine(t, r, &welcome)
	assert.Equal(t, WelcomeType, welcome.Type)
	assert.Equal(t, TransportTCP, welcome.Transport)
	assert.Zero(t, welcome.Seq)
	assert.Equal(t, 1, hub.Stats().TCPClients)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.Publish(BookEvent{Type: BookAdded, ISBN: "978-3-16-148410-0", Title: "Example Title", At: at})

	var ev BookEvent
	readLine(t, r, &ev)
	assert.Equal(t, BookAdded, ev.Type)
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, "978-3-16-148410-0", ev.ISBN)
	assert.True(t, at.Equal(ev.At))
}

func TestServer_WelcomeComesFirstWhilePublishing(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub)

	stop := make(chan struct{})
	published := make(chan struct{})
	go func() {
		defer close(published)
		for {
			select {
			case <-stop:
				return
			default:
				hub.Publish(BookEvent{Type: BookAdded, ISBN: "978-3-16-148410-0"})
			}
		}
	}()
	defer func() {
		close(stop)
		<-published
	}()

	for range 20 {
		conn, r := dialFeed(t, srv)

		var welcome Welcome
		readLine(t, r, &welcome)
		require.Equal(t, WelcomeType, welcome.Type)

		// the first event after the welcome continues its sequence
		var ev BookEvent
		readLine(t, r, &ev)
		require.Equal(t, welcome.Seq+1, ev.Seq)
		require.NoError(t, conn.Close())
	}
}

func TestServer_ClientDisconnect(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub)

	conn, r := dialFeed(t, srv)
	var welcome Welcome
	readLine(t, r, &welcome)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWSHandler_Publish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	ts := httptest.NewServer(r)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var welcome Welcome
	require.NoError(t, json.Unmarshal(msg, &welcome))
	assert.Equal(t, TransportWS, welcome.Transport)
	assert.Equal(t, 1, hub.Stats().WSClients)

	hub.Publish(BookEvent{Type: BookRemoved, ISBN: "978-3-16-148410-0"})
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)

	var ev BookEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, BookRemoved, ev.Type)
	assert.False(t, ev.At.IsZero(), "hub stamps missing times")
}

func TestHub_PublishWithoutFollowers(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() { hub.Publish(BookEvent{Type: BookAdded}) })
	hub.Publish(BookEvent{Type: BookRemoved})
	assert.Equal(t, Stats{LastSeq: 2}, hub.Stats())
}
