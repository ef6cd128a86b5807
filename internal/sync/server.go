package sync

import (
	"bufio"
	"errors"
	"log"
	"net"
	"sync"
)

// Server streams catalog events to plain TCP clients as JSON lines.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run accepts clients until Close is called.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Printf("[tcp-sync] listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	f := tcpFollower{conn: conn}
	if err := s.Hub.join(f); err != nil {
		log.Printf("[tcp-sync] welcome to %s failed: %v", conn.RemoteAddr(), err)
		f.close()
		return
	}
	log.Printf("[tcp-sync] client connected: %s", conn.RemoteAddr())

	defer func() {
		s.Hub.leave(f)
		log.Printf("[tcp-sync] client disconnected: %s", conn.RemoteAddr())
	}()

	// clients only listen; drain whatever they send
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
	}
}

// ListenAddr is the bound address once Run has started, nil before.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
