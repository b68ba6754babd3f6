package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/taskboardhq/taskboard-backend/internal/core/realtime"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Default time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// PumpConfig holds the keepalive windows for a connection's pumps.
// Zero values fall back to defaults; PingInterval must be less than
// PongWait, which config validation enforces.
type PumpConfig struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

// Client binds one websocket connection to its hub session. The read
// pump processes inbound client messages sequentially, so a handler
// that mutates room state never races another message from the same
// connection. The write pump drains the session's bounded send queue.
type Client struct {
	hub     *realtime.Hub
	session *realtime.Session
	conn    *websocket.Conn
	pumps   PumpConfig
	logger  *slog.Logger
}

// NewClient creates a client for an established, authenticated connection.
func NewClient(hub *realtime.Hub, session *realtime.Session, conn *websocket.Conn, pumps PumpConfig, logger *slog.Logger) *Client {
	if pumps.PongWait <= 0 {
		pumps.PongWait = defaultPongWait
	}
	if pumps.PingInterval <= 0 || pumps.PingInterval >= pumps.PongWait {
		pumps.PingInterval = pumps.PongWait * 9 / 10
	}

	return &Client{
		hub:     hub,
		session: session,
		conn:    conn,
		pumps:   pumps,
		logger: logger.With(
			"session_id", session.ID.String(),
			"user_id", session.UserID.String(),
		),
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c.session.ID)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pumps.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pumps.PongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the session's send queue to the websocket
// connection. This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pumps.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.session.Events():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the session. Send close message.
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event interface{}) error {
	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ProjectPayload is the payload for join/leave/get_online_users messages.
type ProjectPayload struct {
	ProjectID int64 `json:"projectId"`
}

// TypingMessagePayload is the payload for typing messages.
type TypingMessagePayload struct {
	ProjectID int64 `json:"projectId"`
	TaskID    int64 `json:"taskId"`
	IsTyping  bool  `json:"isTyping"`
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case "join_project":
		c.handleJoin(msg.Payload)

	case "leave_project":
		c.handleLeave(msg.Payload)

	case "typing":
		c.handleTyping(msg.Payload)

	case "heartbeat":
		c.hub.Heartbeat(c.session)

	case "get_online_users":
		c.handleOnlineUsers(msg.Payload)

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleJoin(payload json.RawMessage) {
	var p ProjectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal join payload", "error", err)
		return
	}

	if p.ProjectID <= 0 {
		c.logger.Warn("invalid project ID in join request", "project_id", p.ProjectID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.hub.JoinProject(ctx, c.session, p.ProjectID); err != nil {
		c.logger.Warn("join denied",
			"project_id", p.ProjectID,
			"error", err,
		)
		// A denied join produces an error frame; the connection stays open.
		c.hub.SendError(c.session, err)
	}
}

func (c *Client) handleLeave(payload json.RawMessage) {
	var p ProjectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal leave payload", "error", err)
		return
	}

	c.hub.LeaveProject(c.session, p.ProjectID)
}

func (c *Client) handleTyping(payload json.RawMessage) {
	var p TypingMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal typing payload", "error", err)
		return
	}

	if err := c.hub.Typing(c.session, p.ProjectID, p.TaskID, p.IsTyping); err != nil {
		c.logger.Debug("typing signal dropped",
			"project_id", p.ProjectID,
			"task_id", p.TaskID,
			"error", err,
		)
	}
}

func (c *Client) handleOnlineUsers(payload json.RawMessage) {
	var p ProjectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal online users payload", "error", err)
		return
	}

	if err := c.hub.OnlineUsers(c.session, p.ProjectID); err != nil {
		c.hub.SendError(c.session, err)
	}
}
