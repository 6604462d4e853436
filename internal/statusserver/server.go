// Package statusserver exposes a local control endpoint for overlay UIs and
// scripts: a JSON snapshot over HTTP and a websocket that streams status
// updates and accepts pause/resume/stop commands.
package statusserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelworks/reel/internal/health"
	"github.com/reelworks/reel/internal/logging"
	"github.com/reelworks/reel/internal/session"
)

var log = logging.L("status")

const (
	writeWait  = 5 * time.Second
	pushPeriod = 500 * time.Millisecond
)

// Command is a control message received over the websocket.
type Command struct {
	Type string `json:"type"` // pause, resume, stop
}

// CommandResult acknowledges a control message.
type CommandResult struct {
	Type  string `json:"type"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// statusPayload is one push frame: session progress plus component health.
type statusPayload struct {
	Session session.Status `json:"session"`
	Health  map[string]any `json:"health,omitempty"`
}

// Server serves status for a single active session. Loopback only; the
// upgrader rejects cross-origin browser connections.
type Server struct {
	sess *session.Session
	hm   *health.Monitor

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	mu    sync.Mutex
	conns map[*client]struct{}
}

// client serializes writes: the push loop and command acks share one
// connection, and gorilla allows a single writer at a time.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func New(sess *session.Session, hm *health.Monitor) *Server {
	return &Server{
		sess: sess,
		hm:   hm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return r.Header.Get("Origin") == ""
			},
		},
		conns: make(map[*client]struct{}),
	}
}

// Start begins serving on addr. Returns the bound address so callers can
// pass ":0" in tests.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("status server stopped", logging.KeyError, err)
		}
	}()

	log.Info("status server listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Stop shuts the server down and closes every websocket.
func (s *Server) Stop() {
	s.mu.Lock()
	for c := range s.conns {
		c.conn.Close()
	}
	s.conns = make(map[*client]struct{})
	s.mu.Unlock()

	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(ctx)
	}
}

func (s *Server) payload() statusPayload {
	p := statusPayload{Session: s.sess.Status()}
	if s.hm != nil {
		p.Health = s.hm.Summary()
	}
	return p
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.payload()); err != nil {
		log.Debug("status encode failed", logging.KeyError, err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", logging.KeyError, err)
		return
	}

	c := &client{conn: conn}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	go s.pushLoop(c)
	s.readLoop(c)
}

// pushLoop streams status frames until the connection or session ends.
func (s *Server) pushLoop(c *client) {
	ticker := time.NewTicker(pushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.sess.Done():
			// One final frame carrying the terminal state.
			s.writeJSON(c, s.payload())
			return
		case <-ticker.C:
			if !s.writeJSON(c, s.payload()) {
				return
			}
		}
	}
}

// readLoop executes control commands from the client.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		c.conn.Close()
	}()

	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			return
		}

		res := CommandResult{Type: cmd.Type, OK: true}
		var err error
		switch cmd.Type {
		case "pause":
			err = s.sess.Pause()
		case "resume":
			err = s.sess.Resume()
		case "stop":
			s.sess.Stop()
		default:
			res.OK = false
			res.Error = "unknown command"
		}
		if err != nil {
			res.OK = false
			res.Error = err.Error()
		}
		log.Info("control command", "type", cmd.Type, "ok", res.OK)
		s.writeJSON(c, res)
	}
}

func (s *Server) writeJSON(c *client, v any) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v) == nil
}
