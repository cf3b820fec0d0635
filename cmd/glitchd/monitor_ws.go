package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Monitor WebSocket: hub + per-client pumps + event broadcaster
// ============================================================================
//
// The monitor is observe-only: clients receive engine events and state
// snapshots as JSON frames; inbound frames are read only to keep the
// connection alive and are discarded. It is not a control surface.
//
// Design constraints:
//   - The engine stays daemon-owned; the hub only ever sees pre-serialized
//     frames, produced inside the tick via monitorSink.
//   - Slow clients are disconnected when their send buffer fills.
//   - Messages are JSON text frames with an envelope: {type, ts_ms, data}.
//   - The initial message on connect is "state" with the latest snapshot.
//
// ============================================================================

// envelope is the wire format for monitor frames.
type envelope struct {
	Type string `json:"type"`
	TsMS uint32 `json:"ts_ms"`
	Data any    `json:"data,omitempty"`
}

type wsEffectData struct {
	Effect string `json:"effect"`
	Detail string `json:"detail,omitempty"`
}

type wsGlitchData struct {
	Lane   int    `json:"lane"`
	Glitch string `json:"glitch"`
	Detail string `json:"detail,omitempty"`
}

type wsPulseData struct {
	Lane     int  `json:"lane"`
	Polarity bool `json:"polarity"`
}

type wsWatchdogData struct {
	SilentMS uint32 `json:"silent_ms"`
}

type wsLaneState struct {
	ID       int     `json:"id"`
	BaseHz   float64 `json:"base_hz"`
	NudgeMul float64 `json:"nudge_mul"`
	Running  bool    `json:"running"`
	Frozen   bool    `json:"frozen"`
	Polarity bool    `json:"polarity"`
}

type wsStateData struct {
	Mode  string        `json:"mode"`
	Lanes []wsLaneState `json:"lanes"`
}

// marshalEvent renders an engine event as a monitor frame.
func marshalEvent(ev Event) ([]byte, bool) {
	var env envelope
	switch v := ev.(type) {
	case EffectStarted:
		env = envelope{Type: "effect_start", TsMS: v.At, Data: wsEffectData{Effect: v.Kind.String(), Detail: v.Detail}}
	case EffectProgress:
		env = envelope{Type: "effect_progress", TsMS: v.At, Data: wsEffectData{Effect: v.Kind.String(), Detail: v.Detail}}
	case EffectEnded:
		env = envelope{Type: "effect_end", TsMS: v.At, Data: wsEffectData{Effect: v.Kind.String()}}
	case SubtleGlitchApplied:
		env = envelope{Type: "subtle_glitch", TsMS: v.At, Data: wsGlitchData{Lane: v.Lane, Glitch: v.Glitch, Detail: v.Detail}}
	case PulseFired:
		env = envelope{Type: "pulse", TsMS: v.At, Data: wsPulseData{Lane: v.Lane, Polarity: v.Polarity}}
	case WatchdogKicked:
		env = envelope{Type: "watchdog", TsMS: v.At, Data: wsWatchdogData{SilentMS: v.SilentMS}}
	default:
		return nil, false
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, false
	}
	return b, true
}

// marshalState snapshots the engine for new and existing clients. Must only
// be called from the daemon goroutine (single-owner).
func marshalState(e *Engine, now uint32) []byte {
	data := wsStateData{Mode: e.Mode().String()}
	for _, l := range e.Lanes() {
		data.Lanes = append(data.Lanes, wsLaneState{
			ID:       l.ID,
			BaseHz:   l.BaseHz,
			NudgeMul: l.NudgeMul,
			Running:  l.Running,
			Frozen:   l.Frozen,
			Polarity: l.Polarity,
		})
	}
	b, err := json.Marshal(envelope{Type: "state", TsMS: now, Data: data})
	if err != nil {
		return nil
	}
	return b
}

// monitorSink adapts the hub into an EventSink. Emit runs inside the tick,
// so reading engine state here is safe under the single-owner rule.
type monitorSink struct {
	eng *Engine
	hub *Hub
}

func newMonitorSink(eng *Engine, hub *Hub) *monitorSink {
	return &monitorSink{eng: eng, hub: hub}
}

func (s *monitorSink) Emit(ev Event) {
	if b, ok := marshalEvent(ev); ok {
		s.hub.BroadcastBytes(b)
	}
	if s.eng == nil {
		return
	}
	switch v := ev.(type) {
	case EffectStarted:
		s.hub.SetState(marshalState(s.eng, v.At))
	case EffectEnded:
		s.hub.SetState(marshalState(s.eng, v.At))
	case WatchdogKicked:
		s.hub.SetState(marshalState(s.eng, v.At))
	}
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient

	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastState []byte
}

func newHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, hubBroadcastBuf),
		register:   make(chan *wsClient, hubRegisterBuf),
		unregister: make(chan *wsClient, hubRegisterBuf),
		clients:    make(map[*wsClient]struct{}),
	}
}

// Run processes hub events until ctx is canceled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("monitor hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("monitor hub stopping (context canceled)")
			h.closeAllClients()
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			state := h.lastState
			h.mu.Unlock()
			if state != nil {
				select {
				case c.send <- state:
				default:
				}
			}
			h.logger.Info("monitor client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first; removing while ranging over
			// the map under the lock would deadlock removeClient.
			var slow []*wsClient

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

// BroadcastBytes enqueues a pre-serialized frame for broadcast. It never
// blocks; if the hub queue is full the frame is dropped.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("monitor broadcast queue full, dropping frame", "bytes", len(msg))
	}
}

// SetState stores the latest state snapshot (sent to clients on connect)
// and broadcasts it.
func (h *Hub) SetState(snapshot []byte) {
	if snapshot == nil {
		return
	}
	h.mu.Lock()
	h.lastState = snapshot
	h.mu.Unlock()
	h.BroadcastBytes(snapshot)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *wsClient, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit; guard the double-close
		// race with unregister.
		safeCloseChan(c.send)
		h.logger.Info("monitor client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// ============================================================================
// Client
// ============================================================================

type wsClient struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

const (
	wsWriteWait  = wsWriteWaitDefault * time.Second
	wsPingPeriod = wsPingPeriodDefault * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (the monitor accepts no commands) and
// keeps the connection's read side alive for pong handling.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		default:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The monitor is read-only and typically bound to localhost or the
	// installation LAN; origin checks would only break kiosk frontends.
	CheckOrigin: func(*http.Request) bool { return true },
}

// serveWS upgrades an HTTP request into a monitor client.
func serveWS(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("monitor upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
			return
		}
		c := &wsClient{
			hub:        hub,
			conn:       conn,
			send:       make(chan []byte, hubClientSendBuf),
			remoteAddr: r.RemoteAddr,
			logger:     logger,
		}
		hub.register <- c
		go c.writePump()
		go c.readPump()
	}
}

// runMonitorServer serves the /ws endpoint until ctx is canceled.
func runMonitorServer(ctx context.Context, addr string, hub *Hub, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", serveWS(hub, logger))

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("monitor listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
