package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rizkyap/ngobrol/pkg/auth"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	type response struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}
	if body.Email == "" || body.Password == "" {
		a.respondError(w, http.StatusBadRequest, errors.New("missing fields"), "email and password are required")
		return
	}

	user, err := a.Auth.SignUp(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{Email: user.Email, Name: user.Name})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	type response struct {
		Token string `json:"token"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}

	var body request
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "invalid request body")
		return
	}

	user, token, err := a.Auth.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			a.respondError(w, http.StatusUnauthorized, err, err.Error())
			return
		}
		a.fail(w, err)
		return
	}

	a.respond(w, http.StatusOK, response{Token: token, Email: user.Email, Name: user.Name})
}
