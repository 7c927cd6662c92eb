package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/rizkyap/ngobrol/pkg/auth"
	"github.com/rizkyap/ngobrol/pkg/blob"
	"github.com/rizkyap/ngobrol/pkg/room"
	"github.com/rizkyap/ngobrol/pkg/store"
)

// API bundles the HTTP surface of the chat service: identity, room
// resolution, the room directory, history and media uploads.
type API struct {
	Log       *slog.Logger
	Store     store.Store
	Counters  store.Counters
	Tokens    *auth.Tokens
	Auth      *auth.Service
	Resolver  *room.Resolver
	Directory *room.Directory
	Uploader  blob.Uploader
	Viewers   store.Presence

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /register", a.register)
	mux.HandleFunc("POST /login", a.login)

	mux.Handle("PUT /profile", a.requireAuth(a.updateProfile))
	mux.Handle("GET /rooms", a.requireAuth(a.listRooms))
	mux.Handle("POST /rooms", a.requireAuth(a.resolveRoom))
	mux.Handle("POST /rooms/read", a.requireAuth(a.resetUnread))
	mux.Handle("GET /rooms/{id}/viewers", a.requireAuth(a.roomViewers))
	mux.Handle("GET /history", a.requireAuth(a.history))
	mux.Handle("POST /upload", a.requireAuth(a.upload))

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Log.Info("request", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Log.Error("encode response", "error", err)
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Log.Error("request failed", "error", err)
	a.respond(w, status, response{Error: msg})
}

// fail maps the core error taxonomy onto HTTP statuses: validation -> 400,
// not found -> 404, everything else is a transport error -> 500.
func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrValidation):
		a.respondError(w, http.StatusBadRequest, err, err.Error())
	case errors.Is(err, store.ErrNotFound):
		a.respondError(w, http.StatusNotFound, err, err.Error())
	case errors.Is(err, store.ErrExists):
		a.respondError(w, http.StatusConflict, err, err.Error())
	default:
		a.respondError(w, http.StatusInternalServerError, err, "something went wrong, please try again")
	}
}
