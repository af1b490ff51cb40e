// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TaskForge Contributors

package web

import (
	"encoding/json"
	"net/http"

	"github.com/taskforge/taskforge/internal/apperr"
	"github.com/taskforge/taskforge/pkg/errutil"
)

// Response messages for kinds whose detail is never exposed.
const (
	msgLoginFailed  = "unable to login"
	msgUnauthorized = "Please authenticate."
	msgInternal     = "internal server error"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindAuthentication:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a response. Internal errors are logged with
// their full context and answered with a fixed message.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	var body errorBody
	switch kind {
	case apperr.KindValidation:
		body = errorBody{Error: err.Error(), Fields: apperr.Fields(err)}
	case apperr.KindAuthentication:
		body = errorBody{Error: msgLoginFailed}
	case apperr.KindUnauthorized:
		a.logger.DebugContext(r.Context(), "request rejected",
			"code", errutil.Code(err), "path", r.URL.Path)
		body = errorBody{Error: msgUnauthorized}
	case apperr.KindNotFound:
		body = errorBody{Error: err.Error()}
	default:
		errutil.LogErrorContext(r.Context(), a.logger, "request failed", err)
		body = errorBody{Error: msgInternal}
	}
	writeJSON(w, status, body)
}
