package model

import (
	"testing"
	"time"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{name: "text", msg: Message{Text: "hello"}, want: "hello"},
		{name: "image", msg: Message{Image: "https://cdn/x.jpg"}, want: "Photo"},
		{name: "audio", msg: Message{Audio: "https://cdn/v.m4a", DurationMs: 1200}, want: "Audio"},
		{name: "empty", msg: Message{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Preview(); got != tt.want {
				t.Errorf("Preview() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPending(t *testing.T) {
	if !(Message{Sender: "a@x.com", Text: "draft"}).Pending() {
		t.Error("unstamped message not pending")
	}
	if (Message{ID: 1, Timestamp: time.Now()}).Pending() {
		t.Error("stamped message reported pending")
	}
}

func TestSnapshotCopiesContent(t *testing.T) {
	msg := Message{
		ID:         7,
		Sender:     "a@x.com",
		Audio:      "https://cdn/v.m4a",
		DurationMs: 4500,
		Read:       true,
	}
	snap := msg.Snapshot()
	if snap.MessageID != 7 || snap.Sender != "a@x.com" || snap.Audio != msg.Audio || snap.DurationMs != 4500 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRoomHasAndFriendOf(t *testing.T) {
	room := Room{ID: "room:a@x.com:b@x.com", Participants: [2]string{"a@x.com", "b@x.com"}}

	if !room.Has("a@x.com") || !room.Has("b@x.com") {
		t.Error("Has rejects a participant")
	}
	if room.Has("c@x.com") {
		t.Error("Has accepts a stranger")
	}
	if got := room.FriendOf("a@x.com"); got != "b@x.com" {
		t.Errorf("FriendOf(a) = %q", got)
	}
	if got := room.FriendOf("b@x.com"); got != "a@x.com" {
		t.Errorf("FriendOf(b) = %q", got)
	}
}
