package lan

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Server accepts one LAN-facing WebSocket connection per game session and
// hands each to onConnect. It mirrors the teacher's HTTPS+WebSocket
// server shape (self-signed TLS, a single upgrade endpoint, graceful
// shutdown on context cancellation).
type Server struct {
	Addr        string
	TLSConfig   *tls.Config
	IdleTimeout time.Duration
	Log         *slog.Logger

	// PerIPLimit caps concurrent connections from a single remote IP (0
	// disables the check). Replaces the teacher's hand-rolled
	// Room.ipConnections counter (room.go) with a plain guarded map, since
	// this relay has no room-wide client registry to hang it off of.
	PerIPLimit int

	// ConnRate/ConnBurst configure a per-connection inbound message rate
	// limiter (golang.org/x/time/rate), the idiomatic
	// replacement for the teacher's per-second counter in
	// Room.CheckControlRate. A limiter paces Conn.Recv via Wait instead of
	// dropping messages, so no packet is ever silently discarded (ConnRate
	// <= 0 disables it).
	ConnRate  float64
	ConnBurst int

	// OnConnect is invoked in its own goroutine for every accepted
	// connection.
	OnConnect func(ctx context.Context, conn *Conn)

	ipMu    sync.Mutex
	ipConns map[string]int
}

func (s *Server) trackIP(ip string) bool {
	if ip == "" || s.PerIPLimit <= 0 {
		return true
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	if s.ipConns == nil {
		s.ipConns = make(map[string]int)
	}
	if s.ipConns[ip] >= s.PerIPLimit {
		return false
	}
	s.ipConns[ip]++
	return true
}

func (s *Server) untrackIP(ip string) {
	if ip == "" {
		return
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	s.ipConns[ip]--
	if s.ipConns[ip] <= 0 {
		delete(s.ipConns, ip)
	}
}

// Run starts the HTTPS+WebSocket listener and blocks until ctx is done
// or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/w3gs", func(w http.ResponseWriter, r *http.Request) {
		ip, _, _ := net.SplitHostPort(r.RemoteAddr)
		if !s.trackIP(ip) {
			http.Error(w, "too many connections from this address", http.StatusTooManyRequests)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.untrackIP(ip)
			log.Error("websocket upgrade failed", "err", err)
			return
		}
		conn := NewConn(ws)
		if s.ConnRate > 0 {
			conn.limiter = rate.NewLimiter(rate.Limit(s.ConnRate), s.ConnBurst)
		}
		go func() {
			defer s.untrackIP(ip)
			s.OnConnect(ctx, conn)
		}()
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("flo lan relay"))
	})

	httpSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		TLSConfig:         s.TLSConfig,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       s.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("lan relay listening", "addr", s.Addr)

	err := httpSrv.ListenAndServeTLS("", "")
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
