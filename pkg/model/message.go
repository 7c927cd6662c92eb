package model

import "time"

type EventType string

const (
	EventMessage EventType = "message"
	EventRead    EventType = "read"
	EventTyping  EventType = "typing"
)

// ReplyRef is a denormalized snapshot of the message being replied to,
// captured at the moment the reply is attached. It is a value copy: later
// changes to the original message (including its read flag) never show up
// here.
type ReplyRef struct {
	MessageID  int64  `json:"message_id"`
	Sender     string `json:"sender"`
	Text       string `json:"text,omitempty"`
	Image      string `json:"image,omitempty"`
	Audio      string `json:"audio,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Message is a single chat message inside a room. Exactly one of Text, Image
// or Audio is set. ID and Timestamp are assigned server-side; a message the
// client has sent but the server has not stamped yet has ID 0 and a zero
// Timestamp, and is ordered by LocalSeq behind all stamped messages.
type Message struct {
	ID         int64     `json:"id"`
	RoomID     string    `json:"room_id"`
	Sender     string    `json:"sender"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	Audio      string    `json:"audio,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Read       bool      `json:"read"`
	Timestamp  time.Time `json:"timestamp"`
	LocalSeq   int64     `json:"-"`
	Reply      *ReplyRef `json:"reply,omitempty"`
}

// Pending reports whether the server has stamped this message yet.
func (m Message) Pending() bool {
	return m.Timestamp.IsZero()
}

// Preview returns the short renderable form used in room lists and
// notifications.
func (m Message) Preview() string {
	switch {
	case m.Text != "":
		return m.Text
	case m.Image != "":
		return "Photo"
	case m.Audio != "":
		return "Audio"
	}
	return ""
}

// Snapshot copies the message's renderable content into a ReplyRef.
func (m Message) Snapshot() ReplyRef {
	return ReplyRef{
		MessageID:  m.ID,
		Sender:     m.Sender,
		Text:       m.Text,
		Image:      m.Image,
		Audio:      m.Audio,
		DurationMs: m.DurationMs,
	}
}

// Event is the record exchanged over Kafka and the websocket fan-out.
type Event struct {
	Type      EventType `json:"type"`
	RoomID    string    `json:"room_id"`
	Message   *Message  `json:"message,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	Reader    string    `json:"reader,omitempty"`
}
