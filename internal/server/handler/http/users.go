package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/CTFClient/internal/models"
)

// UserStore is the persistence needed by UserHandler.
type UserStore interface {
	Users(ctx context.Context) []models.AdminUser
	UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (models.AdminUser, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Registrar creates accounts with hashed passwords.
type Registrar interface {
	Register(ctx context.Context, nu models.NewUser, typ string) (models.AdminUser, error)
}

// UserHandler serves the admin user endpoints.
type UserHandler struct {
	Store     UserStore
	Registrar Registrar
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Users(r.Context()))
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nu models.NewUser
	if !decode(w, r, &nu) {
		return
	}
	u, err := h.Registrar.Register(r.Context(), nu, "user")
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var upd models.UserUpdate
	if !decode(w, r, &upd) {
		return
	}
	u, err := h.Store.UpdateUser(r.Context(), id, upd)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
