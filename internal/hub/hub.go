// Package hub fans transaction events out to websocket subscribers of a
// Safe.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"safe-gateway-lite/internal/txengine"
)

// sendBuffer is how many messages a subscriber may fall behind before it
// is dropped.
const sendBuffer = 32

type Writer interface {
	Write(message []byte) error
	Close() error
}

// Connection subscribes Writer to the events of one topic. Messages are
// delivered by a goroutine owned by the hub, so Broadcast never waits on
// a slow Writer.
type Connection struct {
	Topic  string
	Writer Writer

	send chan []byte
	once sync.Once
}

// Topic names the event stream of a Safe on a chain.
func Topic(chainID, safe string) string {
	return chainID + "|" + safe
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	logger      *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		logger:      logger.With("component", "hub"),
	}
}

func (h *Hub) Register(conn *Connection) {
	conn.send = make(chan []byte, sendBuffer)

	h.mu.Lock()
	if h.connections[conn.Topic] == nil {
		h.connections[conn.Topic] = make(map[*Connection]struct{})
	}
	h.connections[conn.Topic][conn] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(conn)
}

func (h *Hub) writeLoop(conn *Connection) {
	for msg := range conn.send {
		if err := conn.Writer.Write(msg); err != nil {
			h.logger.Debug("dropping subscriber", "topic", conn.Topic, "err", err)
			h.drop(conn)
			return
		}
	}
}

// Unregister removes conn and stops its writer goroutine. It is safe to
// call more than once.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set := h.connections[conn.Topic]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.connections, conn.Topic)
		}
	}
	// sends happen under the read lock, so closing here cannot race them
	conn.once.Do(func() {
		if conn.send != nil {
			close(conn.send)
		}
	})
}

func (h *Hub) drop(conn *Connection) {
	h.Unregister(conn)
	_ = conn.Writer.Close()
}

// Subscribers counts the connections of topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[topic])
}

// Broadcast queues message for every subscriber of topic. Subscribers
// whose queue is full are dropped.
func (h *Hub) Broadcast(topic string, message []byte) {
	var full []*Connection
	h.mu.RLock()
	for c := range h.connections[topic] {
		select {
		case c.send <- message:
		default:
			full = append(full, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range full {
		h.logger.Warn("subscriber too slow, dropping", "topic", topic)
		h.drop(c)
	}
}

// Publish implements txengine.Notifier.
func (h *Hub) Publish(ev txengine.Event) {
	out, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "err", err)
		return
	}
	h.Broadcast(Topic(ev.ChainID, ev.Safe), out)
}
