package sync

import (
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// follower is one connected feed client.
type follower interface {
	transport() string
	send(line []byte) error
	close()
}

type tcpFollower struct{ conn net.Conn }

func (f tcpFollower) transport() string { return TransportTCP }

func (f tcpFollower) send(line []byte) error {
	_ = f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := f.conn.Write(line)
	return err
}

func (f tcpFollower) close() { _ = f.conn.Close() }

type wsFollower struct{ ws *websocket.Conn }

func (f wsFollower) transport() string { return TransportWS }

func (f wsFollower) send(line []byte) error {
	_ = f.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.ws.WriteMessage(websocket.TextMessage, line)
}

func (f wsFollower) close() { _ = f.ws.Close() }

// Hub numbers book events and fans them out to every follower. All writes
// to a follower happen under mu, so each one sees the welcome line first
// and then events in Seq order.
type Hub struct {
	mu        sync.Mutex
	seq       uint64
	followers map[follower]struct{}
}

type Stats struct {
	TCPClients int    `json:"tcp_clients"`
	WSClients  int    `json:"ws_clients"`
	LastSeq    uint64 `json:"last_seq"`
}

func NewHub() *Hub {
	return &Hub{followers: make(map[follower]struct{})}
}

// Publish stamps ev with the next sequence number and sends it as one JSON
// line. Followers whose write fails are dropped.
func (h *Hub) Publish(ev BookEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	ev.Seq = h.seq
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	line, err := encodeLine(ev)
	if err != nil {
		return
	}
	for f := range h.followers {
		if err := f.send(line); err != nil {
			f.close()
			delete(h.followers, f)
		}
	}
}

// join sends the welcome line and registers f in one step.
func (h *Hub) join(f follower) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	line, err := encodeLine(Welcome{
		Type:      WelcomeType,
		Transport: f.transport(),
		Seq:       h.seq,
		Clients:   len(h.followers) + 1,
	})
	if err != nil {
		return err
	}
	if err := f.send(line); err != nil {
		return err
	}
	h.followers[f] = struct{}{}
	return nil
}

func (h *Hub) leave(f follower) {
	h.mu.Lock()
	delete(h.followers, f)
	h.mu.Unlock()
	f.close()
}

// Count is the number of TCP followers.
func (h *Hub) Count() int {
	return h.Stats().TCPClients
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Stats{LastSeq: h.seq}
	for f := range h.followers {
		switch f.transport() {
		case TransportTCP:
			st.TCPClients++
		case TransportWS:
			st.WSClients++
		}
	}
	return st
}

func encodeLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
