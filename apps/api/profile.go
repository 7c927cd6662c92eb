package main

import (
	"encoding/json"
	"errors"
	"net/http"
)

// updateProfile changes the caller's display name and avatar. Email is
// identity and cannot change.
func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name  string `json:"name"`
		Image string `json:"image"`
	}
	type response struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Image string `json:"image,omitempty"`
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
	if body.Name == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing name"), "name is required")
		return
	}

	if err := a.Store.UpdateProfile(r.Context(), claims.Email, body.Name, body.Image); err != nil {
		a.fail(w, err)
		return
	}

	a.respond(w, http.StatusOK, response{Email: claims.Email, Name: body.Name, Image: body.Image})
}
