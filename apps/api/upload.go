package main

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// maxUploadBytes caps message media at 25 MB.
const maxUploadBytes = 25 << 20

// upload stores a media file and returns its download URL. The client then
// sends the URL as an image or audio message body.
func (a *API) upload(w http.ResponseWriter, r *http.Request) {
	type response struct {
		URL string `json:"url"`
	}

	if _, ok := claimsFrom(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Media storage is optional; without CLOUDINARY_URL the service runs
	// with uploads disabled.
	if a.Uploader == nil {
		a.respondError(w, http.StatusServiceUnavailable, errors.New("no uploader"), "uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "file field is required")
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	if kind != "image" && kind != "audio" {
		a.respondError(w, http.StatusBadRequest, errors.New("bad kind"), `kind must be "image" or "audio"`)
		return
	}
	folder := "messages"
	if kind == "audio" {
		folder = "audios"
	}

	name := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	url, err := a.Uploader.Upload(r.Context(), folder, name, file, header.Size, nil)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{URL: url})
}
