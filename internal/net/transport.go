// Package net shares the active board with read-only viewers on the local
// network: a websocket hub that pushes board snapshots, and mDNS
// advertisement so viewers can find the host.
package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CanvasBoard/internal/logging"
	"CanvasBoard/internal/state"
)

const (
	sendBuffer   = 8
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Message is what viewers receive.
type Message struct {
	Type  string               `json:"type"`
	Board state.PersistedBoard `json:"board"`
}

// SnapshotMessage encodes b, handles stripped, as a snapshot message.
func SnapshotMessage(b state.Board) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Board: state.SerializeBoard(b)})
}

// Viewer is one connected client.
type Viewer struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// ConnectionManager tracks viewers and fans snapshots out to them. The
// latest snapshot is kept for viewers that join later.
type ConnectionManager struct {
	viewers map[*Viewer]bool
	last    []byte
	mu      sync.RWMutex
}

// NewConnectionManager creates an empty manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		viewers: make(map[*Viewer]bool),
	}
}

// Add registers v and queues the latest snapshot for it.
func (cm *ConnectionManager) Add(v *Viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.viewers[v] = true
	if cm.last != nil {
		v.send <- cm.last
	}
	logging.Logger().Info("viewer connected", "addr", v.addr, "viewers", len(cm.viewers))
}

// Remove unregisters v and closes its queue.
func (cm *ConnectionManager) Remove(v *Viewer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if !cm.viewers[v] {
		return
	}
	delete(cm.viewers, v)
	close(v.send)
	logging.Logger().Info("viewer disconnected", "addr", v.addr, "viewers", len(cm.viewers))
}

// Broadcast sends data to every viewer. Viewers whose queue is full are
// dropped rather than slowing the host down.
func (cm *ConnectionManager) Broadcast(data []byte) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.last = data
	for v := range cm.viewers {
		select {
		case v.send <- data:
		default:
			delete(cm.viewers, v)
			close(v.send)
			logging.Logger().Warn("slow viewer dropped", "addr", v.addr)
		}
	}
}

// Last returns the latest broadcast snapshot.
func (cm *ConnectionManager) Last() []byte {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.last
}

// Count returns the number of connected viewers.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.viewers)
}

// ShareServer serves the websocket endpoint and the latest snapshot.
type ShareServer struct {
	cm       *ConnectionManager
	upgrader websocket.Upgrader
}

// NewShareServer creates a server over cm.
func NewShareServer(cm *ConnectionManager) *ShareServer {
	return &ShareServer{
		cm: cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Connections returns the viewer registry.
func (s *ShareServer) Connections() *ConnectionManager { return s.cm }

// Broadcast encodes b and sends it to every viewer.
func (s *ShareServer) Broadcast(b state.Board) error {
	data, err := SnapshotMessage(b)
	if err != nil {
		return fmt.Errorf("share: encode board: %w", err)
	}
	s.cm.Broadcast(data)
	return nil
}

// Handler routes /ws and /board.json.
func (s *ShareServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /board.json", s.handleBoard)
	return mux
}

func (s *ShareServer) handleBoard(w http.ResponseWriter, r *http.Request) {
	data := s.cm.Last()
	if data == nil {
		http.Error(w, "nothing shared yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *ShareServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger().Warn("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
		return
	}
	v := &Viewer{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
	s.cm.Add(v)
	go s.writePump(v)
	s.readPump(v)
}

// readPump discards everything viewers send; it only notices when they go
// away.
func (s *ShareServer) readPump(v *Viewer) {
	defer func() {
		s.cm.Remove(v)
		v.conn.Close()
	}()
	v.conn.SetReadLimit(512)
	for {
		if _, _, err := v.conn.NextReader(); err != nil {
			return
		}
	}
}

func (s *ShareServer) writePump(v *Viewer) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()
	for {
		select {
		case data, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ListenAndServe serves on port until ctx is done.
func (s *ShareServer) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("share: listen on %d: %w", port, err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	})
	defer stop()
	logging.Logger().Info("share server listening", "port", port)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
