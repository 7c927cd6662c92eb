package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rizkyap/ngobrol/pkg/model"
)

// history returns a room's messages in ascending server-timestamp order.
func (a *API) history(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []model.Message `json:"messages"`
	}

	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID := r.URL.Query().Get("room_id")
	if roomID == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing room_id"), "room_id is required")
		return
	}

	rm, err := a.Store.GetRoom(r.Context(), roomID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if !rm.Has(claims.Email) {
		a.respondError(w, http.StatusForbidden, errors.New("not a participant"), "not a participant of this room")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	msgs, err := a.Store.Messages(r.Context(), roomID, limit)
	if err != nil {
		a.fail(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	a.respond(w, http.StatusOK, response{Messages: msgs})
}
