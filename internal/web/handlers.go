// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/taskforge/taskforge/internal/apperr"
	"github.com/taskforge/taskforge/internal/auth"
	"github.com/taskforge/taskforge/internal/avatar"
	"github.com/taskforge/taskforge/internal/task"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// multipartOverhead is the allowance for multipart framing on top of the file.
const multipartOverhead = 64 << 10

const codeBadRequest = "REQUEST_INVALID"

type sessionResponse struct {
	User  auth.PublicUser `json:"user"`
	Token string          `json:"token"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation(codeBadRequest, "body", "must be a valid JSON object")
	}
	return nil
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var profile auth.Profile
	if err := decodeJSON(w, r, &profile); err != nil {
		a.writeError(w, r, err)
		return
	}

	u, token, err := a.auth.Register(r.Context(), profile)
	a.metrics.RecordAuthEvent("register", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{User: u.Public(), Token: token})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		a.writeError(w, r, err)
		return
	}

	u, token, err := a.auth.Login(r.Context(), creds.Email, creds.Password)
	a.metrics.RecordAuthEvent("login", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: u.Public(), Token: token})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err == nil {
		err = a.auth.Logout(r.Context(), id.User, id.Token)
	}
	a.metrics.RecordAuthEvent("logout", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err == nil {
		err = a.auth.LogoutAll(r.Context(), id.User)
	}
	a.metrics.RecordAuthEvent("logout_all", err)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id.User.Public())
}

func (a *api) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		a.writeError(w, r, apperr.Validation(codeBadRequest, "body", "is too large"))
		return
	}
	upd, err := auth.ParseProfileUpdate(body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	u, err := a.auth.Update(r.Context(), id.User, upd)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u.Public())
}

func (a *api) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.auth.Delete(r.Context(), id.User); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id.User.Public())
}

func (a *api) handleSetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	data, filename, err := a.readAvatarUpload(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	img, err := avatar.Normalize(filename, data, a.avatarMaxBytes)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.auth.SetAvatar(r.Context(), id.User, img); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readAvatarUpload extracts the avatar file from a multipart request.
func (a *api) readAvatarUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(a.avatarMaxBytes)+multipartOverhead)
	if err := r.ParseMultipartForm(int64(a.avatarMaxBytes)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", apperr.Validation(avatar.CodeTooLarge, avatar.Field, "File too large")
		}
		return nil, "", apperr.Validation(avatar.CodeUnsupported, avatar.Field, "Please upload a image file")
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files only

	file, header, err := r.FormFile(avatar.Field)
	if err != nil {
		return nil, "", apperr.Validation(avatar.CodeUnsupported, avatar.Field, "Please upload a image file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(a.avatarMaxBytes)+1))
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func (a *api) handleClearAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if _, err := a.auth.ClearAvatar(r.Context(), id.User); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *api) handleGetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := ulid.ParseStrict(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, apperr.NotFound(auth.CodeAvatarNotFound, "avatar not found"))
		return
	}

	img, err := a.auth.Avatar(r.Context(), userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may have gone away
	w.Write(img)
}

func (a *api) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	tasks, err := a.tasks.ListByOwner(r.Context(), id.User.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}
