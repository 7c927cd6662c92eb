package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rizkyap/ngobrol/pkg/room"
)

// listRooms returns the caller's room directory, newest activity first.
func (a *API) listRooms(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Rooms []room.Summary `json:"rooms"`
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summaries, err := a.Directory.Snapshot(r.Context(), claims.Email)
	if err != nil {
		a.fail(w, err)
		return
	}
	if summaries == nil {
		summaries = []room.Summary{}
	}

	a.respond(w, http.StatusOK, response{Rooms: summaries})
}

// resolveRoom finds or creates the room between the caller and a friend.
func (a *API) resolveRoom(w http.ResponseWriter, r *http.Request) {
	type request struct {
		FriendEmail string `json:"friend_email"`
	}
	type response struct {
		RoomID  string `json:"room_id"`
		Created bool   `json:"created"`
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}

	roomID, created, err := a.Resolver.ResolveOrCreate(r.Context(), claims.Email, body.FriendEmail)
	if err != nil {
		a.fail(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.respond(w, status, response{RoomID: roomID, Created: created})
}

// resetUnread clears the caller's unread counter for one room, after the
// reconciler has drained the view.
func (a *API) resetUnread(w http.ResponseWriter, r *http.Request) {
	type request struct {
		RoomID string `json:"room_id"`
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	if body.RoomID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing room_id"), "room_id is required")
		return
	}

	// Only participants may reset their counter.
	rm, err := a.Store.GetRoom(r.Context(), body.RoomID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if !rm.Has(claims.Email) {
		a.respondError(w, http.StatusForbidden, errors.New("not a participant"), "not a participant of this room")
		return
	}

	if err := a.Counters.Reset(r.Context(), claims.Email, body.RoomID); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
