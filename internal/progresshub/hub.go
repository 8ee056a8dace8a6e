// Package progresshub streams optimization progress events to websocket
// subscribers, tagged by the run's sequence id so a subscriber watching one
// in-flight request ignores frames from any other.
package progresshub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gearopt/internal/progress"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is the wire envelope for one progress event: the run's sequence id
// plus the event itself.
type Frame struct {
	SequenceID string         `json:"sequence_id"`
	Event      progress.Event `json:"event"`
}

// Client is one subscriber connection, filtered to a single sequence id.
type Client struct {
	SequenceID string
	Conn       *websocket.Conn
	Send       chan []byte
	Hub        *Hub
}

// Hub maintains active subscriber connections and routes frames to the
// clients watching a matching sequence id.
type Hub struct {
	clients    map[*Client]bool
	bySequence map[string][]*Client
	broadcast  chan Frame
	register   chan *Client
	unregister chan *Client
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

// NewHub builds an unstarted Hub; call Run in its own goroutine.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		bySequence: make(map[string][]*Client),
		broadcast:  make(chan Frame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run services registration, unregistration and broadcast until its
// goroutine is torn down with the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.bySequence[client.SequenceID] = append(h.bySequence[client.SequenceID], client)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{
				"sequence_id": client.SequenceID,
			}).Debug("progress subscriber connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)

				peers := h.bySequence[client.SequenceID]
				for i, c := range peers {
					if c == client {
						h.bySequence[client.SequenceID] = append(peers[:i], peers[i+1:]...)
						break
					}
				}
				if len(h.bySequence[client.SequenceID]) == 0 {
					delete(h.bySequence, client.SequenceID)
				}
			}
			h.mutex.Unlock()

		case frame := <-h.broadcast:
			h.mutex.RLock()
			peers := h.bySequence[frame.SequenceID]
			h.mutex.RUnlock()
			if len(peers) == 0 {
				continue
			}

			data, err := json.Marshal(frame)
			if err != nil {
				h.logger.WithError(err).Error("failed to marshal progress frame")
				continue
			}

			h.mutex.RLock()
			for _, client := range peers {
				select {
				case client.Send <- data:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mutex.RUnlock()
		}
	}
}

// HandleWebSocket upgrades an HTTP connection into a subscriber watching
// the sequence id named by the :sequence_id route param.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	sequenceID := c.Param("sequence_id")
	if sequenceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sequence_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("failed to upgrade progress websocket")
		return
	}

	client := &Client{SequenceID: sequenceID, Conn: conn, Send: make(chan []byte, 256), Hub: h}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// Publish enqueues ev for delivery to subscribers watching sequenceID. It
// never blocks the caller beyond the broadcast channel's buffer.
func (h *Hub) Publish(sequenceID string, ev progress.Event) {
	h.broadcast <- Frame{SequenceID: sequenceID, Event: ev}
}

// Callback adapts Publish into a progress.Callback bound to sequenceID, for
// handing straight to the orchestrator.
func (h *Hub) Callback(sequenceID string) progress.Callback {
	return func(ev progress.Event) { h.Publish(sequenceID, ev) }
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("progress websocket error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.WithError(err).Error("failed to write progress frame")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
