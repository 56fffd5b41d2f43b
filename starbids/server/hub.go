package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/starbids/starbids/starbids/auction"
	"github.com/starbids/starbids/starbids/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans live auction events out to websocket viewers, grouped by the
// auction they watch. It implements auction.Broadcaster; sends are dropped
// for clients that cannot keep up.
type Hub struct {
	mu      sync.RWMutex
	viewers map[int64]map[*client]struct{} // auctionID -> clients
}

var _ auction.Broadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{viewers: make(map[int64]map[*client]struct{})}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	auctionID int64
	send      chan []byte
}

// Subscribe upgrades the request and registers the connection as a viewer
// of the given auction until it disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, auctionID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed",
			slog.Int64("auction_id", auctionID),
			slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:       h,
		conn:      conn,
		auctionID: auctionID,
		send:      make(chan []byte, clientBuffer),
	}
	h.add(c)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[c.auctionID] == nil {
		h.viewers[c.auctionID] = make(map[*client]struct{})
	}
	h.viewers[c.auctionID][c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.viewers[c.auctionID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
			if len(set) == 0 {
				delete(h.viewers, c.auctionID)
			}
		}
	}
}

func (h *Hub) BroadcastBid(auctionID int64, bid auction.BidEvent, leaderboard []auction.LeaderboardEntry) {
	h.broadcast(auctionID, "bid", map[string]any{
		"bid":         bid,
		"leaderboard": leaderboard,
	})
}

func (h *Hub) BroadcastRoundExtended(auctionID int64, round auction.RoundEvent) {
	h.broadcast(auctionID, "round_extended", round)
}

func (h *Hub) broadcast(auctionID int64, event string, data any) {
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		logger.LogError("Failed to marshal broadcast", err,
			slog.String("event", event))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.viewers[auctionID] {
		select {
		case c.send <- raw:
		default:
			// Slow consumer; it will be dropped by its write pump.
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// process control frames and to notice the peer going away.
func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
