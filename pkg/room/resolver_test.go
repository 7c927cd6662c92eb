package room

import (
	"context"
	"errors"
	"testing"

	"github.com/neilotoole/slogt"

	"github.com/rizkyap/ngobrol/pkg/model"
	"github.com/rizkyap/ngobrol/pkg/store"
)

func seedUsers(t *testing.T, st store.Store, emails ...string) {
	t.Helper()
	for _, email := range emails {
		if err := st.CreateUser(context.Background(), &model.User{Email: email, Name: email}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCanonicalIDIsSymmetric(t *testing.T) {
	a := CanonicalID("alice@x.com", "bob@x.com")
	b := CanonicalID("bob@x.com", "alice@x.com")
	if a != b {
		t.Errorf("CanonicalID not symmetric: %q vs %q", a, b)
	}
	if a != "room:alice@x.com:bob@x.com" {
		t.Errorf("CanonicalID = %q, want sorted pair form", a)
	}
}

func TestResolveOrCreateValidation(t *testing.T) {
	st := store.NewMemory()
	seedUsers(t, st, "alice@x.com")
	r := NewResolver(st, slogt.New(t))

	tests := []struct {
		name   string
		friend string
	}{
		{name: "empty friend", friend: ""},
		{name: "malformed email", friend: "not-an-email"},
		{name: "self add", friend: "alice@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := r.ResolveOrCreate(context.Background(), "alice@x.com", tt.friend)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestResolveOrCreateUnknownFriend(t *testing.T) {
	st := store.NewMemory()
	seedUsers(t, st, "alice@x.com")
	r := NewResolver(st, slogt.New(t))

	_, _, err := r.ResolveOrCreate(context.Background(), "alice@x.com", "ghost@x.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}

	// No room row may survive the failed resolution.
	rooms, err := st.RoomsFor(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 0 {
		t.Errorf("rooms created on failed resolution: %v", rooms)
	}
}

func TestResolveOrCreateConverges(t *testing.T) {
	st := store.NewMemory()
	seedUsers(t, st, "alice@x.com", "bob@x.com")
	r := NewResolver(st, slogt.New(t))
	ctx := context.Background()

	id1, created, err := r.ResolveOrCreate(ctx, "alice@x.com", "bob@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("first resolution should create the room")
	}

	// Second resolution from the other side lands on the same room.
	id2, created, err := r.ResolveOrCreate(ctx, "bob@x.com", "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second resolution should reuse the room")
	}
	if id1 != id2 {
		t.Errorf("ids diverge: %q vs %q", id1, id2)
	}

	rooms, err := st.RoomsFor(ctx, "alice@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(rooms) != 1 {
		t.Fatalf("room count = %d, want 1", len(rooms))
	}
	if !rooms[0].Has("alice@x.com") || !rooms[0].Has("bob@x.com") {
		t.Errorf("room participants = %v", rooms[0].Participants)
	}
}
