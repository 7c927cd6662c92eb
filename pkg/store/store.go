package store

import (
	"context"
	"errors"
	"time"

	"github.com/rizkyap/ngobrol/pkg/model"
)

var (
	// ErrNotFound is returned when a user, room or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when creating a user that is already registered.
	ErrExists = errors.New("already exists")
)

// Store is the document-store contract the chat core runs against. The
// Scylla implementation backs the services; the memory implementation backs
// tests and the embedded client core.
type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, email, name, image string) error

	// Room operations. UpsertRoom must be idempotent on the room id so
	// concurrent resolutions of the same participant pair converge.
	UpsertRoom(ctx context.Context, room model.Room) error
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	RoomsFor(ctx context.Context, email string) ([]model.Room, error)

	// Message operations
	InsertMessage(ctx context.Context, msg model.Message) error
	Messages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	// MarkRead flips read to true for one message. Re-marking an already
	// read message is a no-op.
	MarkRead(ctx context.Context, roomID string, messageID int64) error

	// TouchActivity records when a participant's room last changed, for
	// directory ordering.
	TouchActivity(ctx context.Context, email, roomID string, at time.Time) error
	LastActivity(ctx context.Context, email string) (map[string]time.Time, error)
}
