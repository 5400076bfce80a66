package httpapi

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lukasbauer/hypoteka/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	liveBuffer     = 64
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
)

// liveMessage is one processed turn as sent to the admin dashboard.
type liveMessage struct {
	SessionID     string    `json:"session_id"`
	TenantID      string    `json:"tenant_id"`
	Phase         string    `json:"phase"`
	Persona       string    `json:"persona"`
	Score         int       `json:"score"`
	Temperature   string    `json:"temperature"`
	LeadSubmitted bool      `json:"lead_submitted"`
	At            time.Time `json:"at"`
}

type liveClient struct {
	send     chan liveMessage
	tenantID string
}

// LiveHub fans processed turns out to connected admin websockets. A slow
// client drops messages instead of holding up turns.
type LiveHub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[*liveClient]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewLiveHub(logger *log.Logger) *LiveHub {
	return &LiveHub{logger: logger, clients: make(map[*liveClient]struct{})}
}

// ObserveTurn implements engine.TurnObserver.
func (h *LiveHub) ObserveTurn(s engine.TurnSummary) {
	msg := liveMessage{
		SessionID:     s.SessionID,
		TenantID:      s.TenantID,
		Phase:         s.Phase,
		Persona:       s.Persona,
		Score:         s.Score,
		Temperature:   s.Temperature,
		LeadSubmitted: s.LeadSubmitted,
		At:            s.At,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.tenantID != "" && c.tenantID != msg.TenantID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Printf("live: client buffer full, dropping turn of session %s", msg.SessionID)
		}
	}
}

func (h *LiveHub) register(tenantID string) (*liveClient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &liveClient{send: make(chan liveMessage, liveBuffer), tenantID: tenantID}
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	return c, true
}

func (h *LiveHub) unregister(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Count returns the number of connected clients.
func (h *LiveHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their writers to exit.
func (h *LiveHub) Close() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// handleAdminLive streams processed turns. ?tenant_id= narrows the feed.
func (r *Router) handleAdminLive(w http.ResponseWriter, req *http.Request) {
	if r.live == nil {
		http.Error(w, `{"error": "live feed disabled"}`, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("live: websocket upgrade failed: %v", err)
		return
	}

	client, ok := r.live.register(req.URL.Query().Get("tenant_id"))
	if !ok {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	r.logger.Printf("live: admin connected (%d clients)", r.live.Count())

	// The reader only notices the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				r.live.unregister(client)
				return
			}
		}
	}()

	r.live.writeLoop(conn, client)
}

func (h *LiveHub) writeLoop(conn *websocket.Conn, c *liveClient) {
	defer h.wg.Done()
	defer conn.Close()

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Printf("live: write failed: %v", err)
				h.unregister(c)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
