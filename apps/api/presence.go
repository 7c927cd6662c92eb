package main

import (
	"net/http"
)

// roomViewers returns who currently has the room open, from the shared
// presence set the gateway maintains.
func (a *API) roomViewers(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Viewers []string `json:"viewers"`
	}

	if _, ok := claimsFrom(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID := r.PathValue("id")
	viewers, err := a.Viewers.List(r.Context(), roomID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if viewers == nil {
		viewers = []string{}
	}

	a.respond(w, http.StatusOK, response{Viewers: viewers})
}
