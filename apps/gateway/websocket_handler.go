package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rizkyap/ngobrol/pkg/compose"
	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/stream"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum control-frame size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client is one open room view: a websocket connection bound to a user and a
// room, with its own composer, feed subscription and reconciler lifetime.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	email    string
	roomID   string
	composer *compose.Composer
	sub      *stream.Subscription
	cancel   context.CancelFunc
}

// controlFrame is what the room view sends over the socket.
type controlFrame struct {
	Action     string `json:"action"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	MessageID  int64  `json:"message_id,omitempty"`
}

// serverFrame is what the gateway pushes to the room view.
type serverFrame struct {
	Type     string          `json:"type"`
	Messages []model.Message `json:"messages,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// pumpSnapshots forwards every ordered snapshot from the room feed to the
// socket. It owns c.send: once the feed closes it drains what is buffered and
// closes the channel, which tells writePump to finish.
func (c *Client) pumpSnapshots(sub *stream.Subscription) {
	defer close(c.send)
	for snap := range sub.C {
		frame, err := json.Marshal(serverFrame{Type: "snapshot", Messages: snap})
		if err != nil {
			c.hub.log.Error("marshal snapshot", "error", err)
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; the next snapshot supersedes this one anyway.
		}
	}
}

func (c *Client) sendError(err error) {
	frame, marshalErr := json.Marshal(serverFrame{Type: "error", Error: err.Error()})
	if marshalErr != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

// handleFrame applies one control frame to the composer. Every failure is
// terminal for that action: the client surfaces it and the user retries.
func (c *Client) handleFrame(ctx context.Context, frame controlFrame) {
	var err error
	switch frame.Action {
	case "text":
		if err = c.composer.SetText(frame.Text); err == nil {
			_, err = c.composer.Send(ctx)
		}
	case "image":
		_, err = c.composer.SendImage(ctx, frame.URL)
	case "reply":
		var target *model.Message
		target, err = c.findMessage(ctx, frame.MessageID)
		if err == nil {
			c.composer.AttachReply(*target)
		}
	case "cancel_reply":
		c.composer.CancelReply()
	case "record_start":
		_, err = c.composer.StartRecording()
	case "record_stop":
		_, err = c.composer.StopRecording(ctx, frame.URL, frame.DurationMs)
	case "record_cancel":
		err = c.composer.CancelRecording()
	case "typing":
		err = c.hub.publish(ctx, model.Event{Type: model.EventTyping, RoomID: c.roomID, Reader: c.email})
	default:
		err = errors.New("unknown action: " + frame.Action)
	}
	if err != nil {
		c.sendError(err)
	}
}

func (c *Client) findMessage(ctx context.Context, id int64) (*model.Message, error) {
	msgs, err := c.hub.store.Messages(ctx, c.roomID, 0)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ID == id {
			return &msgs[i], nil
		}
	}
	return nil, errors.New("reply target not found")
}

// readPump pumps control frames from the websocket connection into the
// composer.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Error("read error", "error", err)
			}
			break
		}

		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			// Bare text is treated as a plain text message.
			frame = controlFrame{Action: "text", Text: string(raw)}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		c.handleFrame(ctx, frame)
		cancel()
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// serveWs authenticates the caller, checks room membership and hands the
// connection to the hub.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback, standard for browser websocket clients.
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	claims, err := hub.tokens.Validate(tokenString)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	email := claims.Email

	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		http.Error(w, "room query param is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	room, err := hub.store.GetRoom(ctx, roomID)
	cancel()
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}
	if !room.Has(email) {
		http.Error(w, "Not a participant of this room", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		email:    email,
		roomID:   roomID,
		composer: compose.New(roomID, email, &KafkaOutbox{hub: hub}),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
