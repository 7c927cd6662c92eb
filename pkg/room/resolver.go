// Package room resolves two-participant rooms and serves the room directory.
package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/store"
)

// ErrValidation covers bad input resolved before any store call: missing or
// malformed friend email, or adding yourself.
var ErrValidation = errors.New("validation failed")

// CanonicalID derives the deterministic room id for an unordered pair of
// participant emails. Both orderings produce the same id, which is what makes
// room creation idempotent.
func CanonicalID(a, b string) string {
	lo, hi := SortPair(a, b)
	return "room:" + lo + ":" + hi
}

// SortPair returns the two emails in lexical order.
func SortPair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// Resolver finds or creates the room between two users.
type Resolver struct {
	store    store.Store
	validate *validator.Validate
	log      *slog.Logger
}

func NewResolver(st store.Store, log *slog.Logger) *Resolver {
	return &Resolver{
		store:    st,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// ResolveOrCreate returns the id of the room between currentEmail and
// friendEmail, creating it when no room exists yet. The returned bool is true
// when a new room was created. Validation failures and unknown friends are
// rejected before any write.
func (r *Resolver) ResolveOrCreate(ctx context.Context, currentEmail, friendEmail string) (string, bool, error) {
	if friendEmail == "" {
		return "", false, fmt.Errorf("%w: friend email is required", ErrValidation)
	}
	if err := r.validate.Var(friendEmail, "email"); err != nil {
		return "", false, fmt.Errorf("%w: %q is not a valid email address", ErrValidation, friendEmail)
	}
	if friendEmail == currentEmail {
		return "", false, fmt.Errorf("%w: you cannot add yourself as a friend", ErrValidation)
	}

	if _, err := r.store.GetUserByEmail(ctx, friendEmail); err != nil {
		return "", false, err
	}

	// Scan the caller's rooms first so an existing room is returned as-is.
	rooms, err := r.store.RoomsFor(ctx, currentEmail)
	if err != nil {
		return "", false, err
	}
	for _, existing := range rooms {
		if existing.Has(friendEmail) {
			return existing.ID, false, nil
		}
	}

	lo, hi := SortPair(currentEmail, friendEmail)
	newRoom := model.Room{
		ID:           CanonicalID(currentEmail, friendEmail),
		Participants: [2]string{lo, hi},
		CreatedAt:    time.Now(),
	}
	// The id is canonical, so a concurrent resolution of the same pair
	// lands on the same row.
	if err := r.store.UpsertRoom(ctx, newRoom); err != nil {
		return "", false, fmt.Errorf("create room: %w", err)
	}
	r.log.Info("room created", "room", newRoom.ID)
	return newRoom.ID, true, nil
}
