package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"pagebuilder/internal/service"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub fans session events out to websocket clients and accepts editing
// commands from them. It implements service.EventEmitter.
type Hub struct {
	upgrader websocket.Upgrader

	mu        sync.Mutex
	clients   []*wsClient
	workspace *service.Workspace
}

var _ service.EventEmitter = (*Hub)(nil)

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// wsEvent is pushed to every client when a session publishes.
type wsEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// wsRequest is a command sent by a client for one page.
type wsRequest struct {
	ID      any             `json:"id"`
	PageID  string          `json:"pageId"`
	Command service.Command `json:"command"`
}

type wsResponse struct {
	ID     any      `json:"id"`
	Result any      `json:"result,omitempty"`
	Error  *wsError `json:"error,omitempty"`
}

type wsError struct {
	Message string `json:"message"`
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetWorkspace connects the hub to the pages its clients edit. The hub is
// created first because the workspace publishes through it.
func (h *Hub) SetWorkspace(ws *service.Workspace) {
	h.mu.Lock()
	h.workspace = ws
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Emit broadcasts an event to all connected clients.
func (h *Hub) Emit(_ context.Context, event string, data any) {
	msg, err := json.Marshal(wsEvent{Event: event, Data: data})
	if err != nil {
		log.Printf("[WS] marshal %s: %v", event, err)
		return
	}
	h.mu.Lock()
	clients := append([]*wsClient(nil), h.clients...)
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			log.Printf("[WS] write %s: %v", event, err)
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade: %v", err)
		return
	}
	conn.SetReadLimit(maxBodyBytes)
	client := &wsClient{conn: conn}
	h.mu.Lock()
	h.clients = append(h.clients, client)
	h.mu.Unlock()

	defer func() {
		conn.Close()
		h.mu.Lock()
		for i, c := range h.clients {
			if c == client {
				h.clients = append(h.clients[:i], h.clients[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		data, _ := json.Marshal(h.handle(r.Context(), req))
		if err := client.write(data); err != nil {
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, req wsRequest) wsResponse {
	h.mu.Lock()
	ws := h.workspace
	h.mu.Unlock()
	if ws == nil {
		return wsResponse{ID: req.ID, Error: &wsError{Message: "no workspace"}}
	}

	sess, err := ws.Open(ctx, req.PageID)
	if err != nil {
		return wsResponse{ID: req.ID, Error: &wsError{Message: err.Error()}}
	}
	state, err := sess.Execute(req.Command)
	if err != nil {
		return wsResponse{ID: req.ID, Error: &wsError{Message: err.Error()}}
	}
	return wsResponse{ID: req.ID, Result: state}
}
