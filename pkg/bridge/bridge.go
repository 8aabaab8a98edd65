// Package bridge forwards frames received over a websocket to a board.
//
// Each text message is a JSON object holding the serial "port" to drive,
// the "frame" number and, per channel X, the keys pin_X, value_X and type_X.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Seann-Moser/servoseq/pkg/board"
	"github.com/Seann-Moser/servoseq/pkg/pin"
	"github.com/Seann-Moser/servoseq/pkg/table"
)

var (
	ErrBadMessage = errors.New("bridge: bad message")
	ErrClosed     = errors.New("bridge: closed")
)

// Opener connects to the board on port.
type Opener func(port string) (board.Board, error)

// Reply is sent back for every message received.
type Reply struct {
	Frame int    `json:"frame"`
	Error string `json:"error,omitempty"`
}

// Status is served from /api/status.
type Status struct {
	Port    string   `json:"port"`
	Clients []string `json:"clients"`
	Frames  int64    `json:"frames"`
	Record  string   `json:"record,omitempty"`
}

type Options struct {
	// Record, when set, receives every frame.
	Record *table.FrameWriter
	Logger *slog.Logger
}

type Server struct {
	open     Opener
	record   *table.FrameWriter
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	board   board.Board
	port    string
	clients map[string]*websocket.Conn
	frames  int64
	closed  bool
}

func New(open Opener, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		open:    open,
		record:  opts.Record,
		log:     log,
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			// the sender runs in a desktop app with no fixed origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleSocket)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// closes the board.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	// Shutdown leaves hijacked websocket connections alone
	srv.RegisterOnShutdown(s.disconnectClients)
	errc := make(chan error, 1)
	go func() {
		s.log.Info("serving websocket", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		_ = s.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close disconnects every client and closes the current board, if any.
// Frames applied after Close fail with ErrClosed.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	b := s.board
	s.board, s.port = nil, ""
	s.mu.Unlock()

	s.disconnectClients()
	if b == nil {
		return nil
	}
	return b.Close()
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	log := s.log.With("client", id, "remote", r.RemoteAddr)
	if !s.register(id, conn) {
		return
	}
	defer s.unregister(id)
	log.Info("client connected")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("connection closed", "error", err)
			} else {
				log.Info("client disconnected")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var reply Reply
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			reply.Error = fmt.Errorf("%w: %v", ErrBadMessage, err).Error()
		} else {
			reply.Frame = frameNumber(msg)
			if err := s.Apply(msg); err != nil {
				log.Warn("frame failed", "frame", reply.Frame, "error", err)
				reply.Error = err.Error()
			}
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Warn("reply failed", "error", err)
			return
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := Status{Port: s.port, Frames: s.frames, Clients: make([]string, 0, len(s.clients))}
	for id := range s.clients {
		st.Clients = append(st.Clients, id)
	}
	s.mu.Unlock()
	sort.Strings(st.Clients)
	if s.record != nil {
		st.Record = s.record.Path()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) register(id string, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[id] = conn
	return true
}

// disconnectClients sends a going-away close to every client and drops its
// connection. Their handlers return once the read fails.
func (s *Server) disconnectClients() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for _, c := range s.clients {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	deadline := time.Now().Add(time.Second)
	for _, c := range conns {
		_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"), deadline)
		_ = c.Close()
	}
}

func (s *Server) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

type output struct {
	name  string
	out   pin.Output
	value float64
}

// Apply writes one frame message to the board for its port, reopening the
// board when the port changes, and records it when recording is enabled.
func (s *Server) Apply(msg map[string]any) error {
	outs, err := parseOutputs(msg)
	if err != nil {
		return err
	}
	port, _ := msg["port"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.board == nil || port != s.port {
		if s.board != nil {
			if err := s.board.Close(); err != nil {
				s.log.Warn("closing board failed", "port", s.port, "error", err)
			}
			s.board = nil
		}
		b, err := s.open(port)
		if err != nil {
			return fmt.Errorf("open board on %q: %w", port, err)
		}
		s.board, s.port = b, port
		s.log.Info("board opened", "port", port)
	}
	for _, o := range outs {
		if err := s.board.SetOutput(o.out, o.value); err != nil {
			return fmt.Errorf("channel %s: %w", o.name, err)
		}
	}
	s.frames++
	if s.record != nil {
		if err := s.record.Write(msg); err != nil {
			return fmt.Errorf("record frame: %w", err)
		}
	}
	return nil
}

func parseOutputs(msg map[string]any) ([]output, error) {
	type channel struct {
		pin, value, kind any
	}
	channels := make(map[string]*channel)
	for k, v := range msg {
		if k == "port" || k == "frame" {
			continue
		}
		attrib, name, ok := table.ParseChannelKey(k)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected key %q", ErrBadMessage, k)
		}
		c := channels[name]
		if c == nil {
			c = &channel{}
			channels[name] = c
		}
		switch attrib {
		case "pin":
			c.pin = v
		case "value":
			c.value = v
		case "type":
			c.kind = v
		}
	}

	names := make([]string, 0, len(channels))
	for n := range channels {
		names = append(names, n)
	}
	sort.Strings(names)
	outs := make([]output, 0, len(names))
	for _, n := range names {
		c := channels[n]
		p, err := number(c.pin)
		if err != nil {
			return nil, fmt.Errorf("%w: pin_%s: %v", ErrBadMessage, n, err)
		}
		v, err := number(c.value)
		if err != nil {
			return nil, fmt.Errorf("%w: value_%s: %v", ErrBadMessage, n, err)
		}
		ks, _ := c.kind.(string)
		kind, err := pin.ParseKind(ks)
		if err != nil {
			return nil, fmt.Errorf("%w: type_%s: %v", ErrBadMessage, n, err)
		}
		outs = append(outs, output{name: n, out: pin.Output{Pin: int(p), Kind: kind}, value: v})
	}
	return outs, nil
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case string:
		return strconv.ParseFloat(x, 64)
	case nil:
		return 0, errors.New("missing")
	}
	return 0, fmt.Errorf("%v is not a number", v)
}

func frameNumber(msg map[string]any) int {
	f, err := number(msg["frame"])
	if err != nil {
		return 0
	}
	return int(f)
}
