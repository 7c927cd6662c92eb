// Package compose owns the outgoing-message draft for one room view: staged
// text, the recording handle, and the reply snapshot. The composition mode is
// an explicit state machine so text and voice drafts cannot coexist.
package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rizkyap/ngobrol/pkg/model"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeComposing
	ModeRecording
	ModeSending
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeComposing:
		return "composing"
	case ModeRecording:
		return "recording"
	case ModeSending:
		return "sending"
	}
	return "unknown"
}

var (
	// ErrInvalidTransition rejects composition-mode changes the state
	// machine does not allow, such as recording over staged text.
	ErrInvalidTransition = errors.New("invalid composition transition")
	// ErrEmptyMessage rejects sending with nothing staged.
	ErrEmptyMessage = errors.New("message is empty")
)

// Outbox hands a finished draft to the transport. The returned message
// carries whatever the transport assigned (id, server timestamp).
type Outbox interface {
	Send(ctx context.Context, msg model.Message) (model.Message, error)
}

// Recording is the handle for an in-progress voice recording.
type Recording struct {
	StartedAt time.Time
}

// Composer holds the draft state for one sender in one room. Safe for a UI
// thread plus background send completions.
type Composer struct {
	mu     sync.Mutex
	roomID string
	sender string
	outbox Outbox

	mode  Mode
	text  string
	reply *model.ReplyRef
	rec   *Recording
	seq   int64
}

func New(roomID, sender string, outbox Outbox) *Composer {
	return &Composer{roomID: roomID, sender: sender, outbox: outbox}
}

func (c *Composer) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetText stages draft text. Clearing the text returns the composer to idle.
// Not allowed while recording or mid-send.
func (c *Composer) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeRecording || c.mode == ModeSending {
		return fmt.Errorf("%w: cannot edit text while %s", ErrInvalidTransition, c.mode)
	}
	c.text = text
	if text == "" {
		c.mode = ModeIdle
	} else {
		c.mode = ModeComposing
	}
	return nil
}

// AttachReply snapshots the target message onto the draft. The snapshot is a
// value copy taken now; later changes to the target do not propagate.
func (c *Composer) AttachReply(target model.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := target.Snapshot()
	c.reply = &snap
}

// CancelReply drops the attached reply snapshot.
func (c *Composer) CancelReply() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply = nil
}

// Reply returns a copy of the attached reply snapshot, or nil.
func (c *Composer) Reply() *model.ReplyRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reply == nil {
		return nil
	}
	snap := *c.reply
	return &snap
}

// Send submits the staged text message. On success the text and the reply
// snapshot are cleared and the composer returns to idle. On failure the draft
// is kept so the user can retry manually.
func (c *Composer) Send(ctx context.Context) (model.Message, error) {
	c.mu.Lock()
	if c.mode != ModeComposing || c.text == "" {
		c.mu.Unlock()
		return model.Message{}, fmt.Errorf("%w: nothing staged to send", ErrEmptyMessage)
	}
	draft := c.draftLocked()
	draft.Text = c.text
	c.mode = ModeSending
	c.mu.Unlock()

	sent, err := c.outbox.Send(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.mode = ModeComposing
		return model.Message{}, fmt.Errorf("send message: %w", err)
	}
	c.text = ""
	c.reply = nil
	c.mode = ModeIdle
	return sent, nil
}

// SendImage submits an already-uploaded image as a message. Allowed whenever
// no recording or send is in flight; staged text survives.
func (c *Composer) SendImage(ctx context.Context, url string) (model.Message, error) {
	c.mu.Lock()
	if c.mode == ModeRecording || c.mode == ModeSending {
		c.mu.Unlock()
		return model.Message{}, fmt.Errorf("%w: cannot send image while %s", ErrInvalidTransition, c.mode)
	}
	if url == "" {
		c.mu.Unlock()
		return model.Message{}, ErrEmptyMessage
	}
	draft := c.draftLocked()
	draft.Image = url
	c.mu.Unlock()

	sent, err := c.outbox.Send(ctx, draft)
	if err != nil {
		return model.Message{}, fmt.Errorf("send image: %w", err)
	}

	c.mu.Lock()
	c.reply = nil
	c.mu.Unlock()
	return sent, nil
}

// StartRecording begins a voice draft. Only reachable from idle: staged text
// excludes recording by construction, not just in the UI.
func (c *Composer) StartRecording() (*Recording, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeIdle {
		return nil, fmt.Errorf("%w: cannot record while %s", ErrInvalidTransition, c.mode)
	}
	c.rec = &Recording{StartedAt: time.Now()}
	c.mode = ModeRecording
	return c.rec, nil
}

// StopRecording finishes the voice draft and submits it with the uploaded
// audio URL and measured duration.
func (c *Composer) StopRecording(ctx context.Context, audioURL string, durationMs int64) (model.Message, error) {
	c.mu.Lock()
	if c.mode != ModeRecording {
		c.mu.Unlock()
		return model.Message{}, fmt.Errorf("%w: no recording in progress", ErrInvalidTransition)
	}
	draft := c.draftLocked()
	draft.Audio = audioURL
	draft.DurationMs = durationMs
	c.mode = ModeSending
	c.mu.Unlock()

	sent, err := c.outbox.Send(ctx, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rec = nil
	if err != nil {
		c.mode = ModeIdle
		return model.Message{}, fmt.Errorf("send audio: %w", err)
	}
	c.reply = nil
	c.mode = ModeIdle
	return sent, nil
}

// CancelRecording discards the voice draft and returns to idle.
func (c *Composer) CancelRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeRecording {
		return fmt.Errorf("%w: no recording in progress", ErrInvalidTransition)
	}
	c.rec = nil
	c.mode = ModeIdle
	return nil
}

// draftLocked builds the base outgoing message: unstamped, unread, with the
// reply snapshot copied in. Caller holds c.mu.
func (c *Composer) draftLocked() model.Message {
	c.seq++
	msg := model.Message{
		RoomID:   c.roomID,
		Sender:   c.sender,
		LocalSeq: c.seq,
	}
	if c.reply != nil {
		snap := *c.reply
		msg.Reply = &snap
	}
	return msg
}
