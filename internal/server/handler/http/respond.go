package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/atinyakov/CTFClient/internal/repository"
)

type validatable interface {
	Validate() error
}

// errorResponse is the body of every non-2xx JSON answer.
type errorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps repository errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v and validates it. It answers 400 itself
// and reports false when the request must stop.
func decode(w http.ResponseWriter, r *http.Request, v validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	if err := v.Validate(); err != nil {
		resp := errorResponse{Error: "validation failed"}
		var errs validation.Errors
		if errors.As(err, &errs) {
			resp.Errors = make(map[string]string, len(errs))
			for field, fe := range errs {
				resp.Errors[field] = fe.Error()
			}
		} else {
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

// idParam parses a positive numeric URL parameter, answering 400 otherwise.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+strings.ToLower(name))
		return 0, false
	}
	return id, true
}

// hasURLParam reports whether the matched route declares name.
func hasURLParam(r *http.Request, name string) bool {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return false
	}
	for _, k := range rctx.URLParams.Keys {
		if k == name {
			return true
		}
	}
	return false
}
