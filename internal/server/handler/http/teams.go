package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/CTFClient/internal/models"
)

// TeamStore is the persistence needed by TeamHandler.
type TeamStore interface {
	Teams(ctx context.Context, includeHidden bool) []models.Team
	Team(ctx context.Context, id int64) (models.Team, error)
	TeamMembers(ctx context.Context, id int64) ([]models.User, error)
	CreateTeam(ctx context.Context, nt models.NewTeam) (models.Team, error)
	UpdateTeam(ctx context.Context, id int64, upd models.TeamUpdate) (models.Team, error)
	DeleteTeam(ctx context.Context, id int64) error
}

// TeamHandler serves the public and admin team endpoints.
type TeamHandler struct {
	Store TeamStore
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Teams(r.Context(), false))
}

func (h *TeamHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Teams(r.Context(), true))
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.Store.Team(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	members, err := h.Store.TeamMembers(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nt models.NewTeam
	if !decode(w, r, &nt) {
		return
	}
	t, err := h.Store.CreateTeam(r.Context(), nt)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var upd models.TeamUpdate
	if !decode(w, r, &upd) {
		return
	}
	t, err := h.Store.UpdateTeam(r.Context(), id, upd)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteTeam(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
