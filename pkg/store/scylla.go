package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rizkyap/ngobrol/pkg/db"
	"github.com/rizkyap/ngobrol/pkg/model"
)

// Scylla implements Store on top of a ScyllaDB session.
type Scylla struct {
	session *db.Session
}

func NewScylla(session *db.Session) *Scylla {
	return &Scylla{session: session}
}

func (s *Scylla) CreateUser(ctx context.Context, user *model.User) error {
	applied, err := s.session.Query(
		`INSERT INTO users (email, name, image, password_hash) VALUES (?, ?, ?, ?) IF NOT EXISTS`,
		user.Email, user.Name, user.Image, user.PasswordHash,
	).WithContext(ctx).ScanCAS(nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	if !applied {
		return fmt.Errorf("user %s: %w", user.Email, ErrExists)
	}
	return nil
}

func (s *Scylla) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.session.Query(
		`SELECT email, name, image, password_hash FROM users WHERE email = ?`, email,
	).WithContext(ctx).Scan(&u.Email, &u.Name, &u.Image, &u.PasswordHash)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (s *Scylla) UpdateProfile(ctx context.Context, email, name, image string) error {
	err := s.session.Query(
		`UPDATE users SET name = ?, image = ? WHERE email = ?`, name, image, email,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *Scylla) UpsertRoom(ctx context.Context, room model.Room) error {
	// Room ids are canonical, so a plain insert is idempotent: two racing
	// creations write the same row.
	err := s.session.Query(
		`INSERT INTO rooms (id, participant_lo, participant_hi, created_at) VALUES (?, ?, ?, ?)`,
		room.ID, room.Participants[0], room.Participants[1], room.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	for _, p := range room.Participants {
		err := s.session.Query(
			`INSERT INTO rooms_by_user (email, room_id) VALUES (?, ?)`, p, room.ID,
		).WithContext(ctx).Exec()
		if err != nil {
			return fmt.Errorf("index room for %s: %w", p, err)
		}
	}
	return nil
}

func (s *Scylla) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	var r model.Room
	err := s.session.Query(
		`SELECT id, participant_lo, participant_hi, created_at FROM rooms WHERE id = ?`, id,
	).WithContext(ctx).Scan(&r.ID, &r.Participants[0], &r.Participants[1], &r.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &r, nil
}

func (s *Scylla) RoomsFor(ctx context.Context, email string) ([]model.Room, error) {
	iter := s.session.Query(
		`SELECT room_id FROM rooms_by_user WHERE email = ?`, email,
	).WithContext(ctx).Iter()

	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	rooms := make([]model.Room, 0, len(ids))
	for _, roomID := range ids {
		r, err := s.GetRoom(ctx, roomID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, nil
}

func (s *Scylla) InsertMessage(ctx context.Context, msg model.Message) error {
	var (
		replyID       int64
		replySender   string
		replyText     string
		replyImage    string
		replyAudio    string
		replyDuration int64
	)
	if msg.Reply != nil {
		replyID = msg.Reply.MessageID
		replySender = msg.Reply.Sender
		replyText = msg.Reply.Text
		replyImage = msg.Reply.Image
		replyAudio = msg.Reply.Audio
		replyDuration = msg.Reply.DurationMs
	}

	err := s.session.Query(
		`INSERT INTO messages (room_id, id, sender, message_text, image, audio, duration_ms, read, ts,
			reply_id, reply_sender, reply_text, reply_image, reply_audio, reply_duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.RoomID, msg.ID, msg.Sender, msg.Text, msg.Image, msg.Audio, msg.DurationMs,
		msg.Read, msg.Timestamp,
		replyID, replySender, replyText, replyImage, replyAudio, replyDuration,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Scylla) Messages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	q := `SELECT id, sender, message_text, image, audio, duration_ms, read, ts,
			reply_id, reply_sender, reply_text, reply_image, reply_audio, reply_duration_ms
		  FROM messages WHERE room_id = ?`
	query := s.session.Query(q, roomID)
	if limit > 0 {
		query = s.session.Query(q+` LIMIT ?`, roomID, limit)
	}
	iter := query.WithContext(ctx).Iter()

	var msgs []model.Message
	for {
		var (
			m             model.Message
			replyID       int64
			replySender   string
			replyText     string
			replyImage    string
			replyAudio    string
			replyDuration int64
		)
		ok := iter.Scan(&m.ID, &m.Sender, &m.Text, &m.Image, &m.Audio, &m.DurationMs, &m.Read, &m.Timestamp,
			&replyID, &replySender, &replyText, &replyImage, &replyAudio, &replyDuration)
		if !ok {
			break
		}
		m.RoomID = roomID
		if replyID != 0 {
			m.Reply = &model.ReplyRef{
				MessageID:  replyID,
				Sender:     replySender,
				Text:       replyText,
				Image:      replyImage,
				Audio:      replyAudio,
				DurationMs: replyDuration,
			}
		}
		msgs = append(msgs, m)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func (s *Scylla) MarkRead(ctx context.Context, roomID string, messageID int64) error {
	err := s.session.Query(
		`UPDATE messages SET read = true WHERE room_id = ? AND id = ?`, roomID, messageID,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

func (s *Scylla) TouchActivity(ctx context.Context, email, roomID string, at time.Time) error {
	err := s.session.Query(
		`INSERT INTO room_activity (email, room_id, last_updated) VALUES (?, ?, ?)`,
		email, roomID, at,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

func (s *Scylla) LastActivity(ctx context.Context, email string) (map[string]time.Time, error) {
	iter := s.session.Query(
		`SELECT room_id, last_updated FROM room_activity WHERE email = ?`, email,
	).WithContext(ctx).Iter()

	out := make(map[string]time.Time)
	var roomID string
	var at time.Time
	for iter.Scan(&roomID, &at) {
		out[roomID] = at
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}
