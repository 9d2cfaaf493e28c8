package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/atinyakov/CTFClient/internal/models"
)

const maxUploadSize = 32 << 20

// ChallengeStore is the persistence needed by ChallengeHandler.
type ChallengeStore interface {
	Challenges(ctx context.Context) []models.Challenge
	Challenge(ctx context.Context, id int64) (models.Challenge, error)
	CreateChallenge(ctx context.Context, nc models.NewChallenge) (models.Challenge, error)
	UpdateChallenge(ctx context.Context, id int64, upd models.ChallengeUpdate) (models.Challenge, error)
	DeleteChallenge(ctx context.Context, id int64) error
	SetFrozen(ctx context.Context, id int64, frozen bool) error

	Flags(ctx context.Context, challengeID int64) ([]models.Flag, error)
	SaveFlag(ctx context.Context, challengeID, flagID int64, nf models.NewFlag) (models.Flag, error)
	DeleteFlag(ctx context.Context, challengeID, flagID int64) error

	Hints(ctx context.Context, challengeID int64) ([]models.Hint, error)
	SaveHint(ctx context.Context, challengeID, hintID int64, nh models.NewHint) (models.Hint, error)
	DeleteHint(ctx context.Context, challengeID, hintID int64) error

	Files(ctx context.Context, challengeID int64) ([]models.File, error)
	AddFile(ctx context.Context, challengeID int64, name, typ string, content []byte) (models.File, error)
	FileContent(ctx context.Context, challengeID, fileID int64) (models.File, []byte, error)
	DeleteFile(ctx context.Context, challengeID, fileID int64) error
}

// ChallengeHandler serves the admin challenge endpoints and their flags,
// hints, files and freeze switches.
type ChallengeHandler struct {
	Store ChallengeStore
}

func (h *ChallengeHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Challenges(r.Context()))
}

func (h *ChallengeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	c, err := h.Store.Challenge(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var nc models.NewChallenge
	if !decode(w, r, &nc) {
		return
	}
	c, err := h.Store.CreateChallenge(r.Context(), nc)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ChallengeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var upd models.ChallengeUpdate
	if !decode(w, r, &upd) {
		return
	}
	c, err := h.Store.UpdateChallenge(r.Context(), id, upd)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ChallengeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteChallenge(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Freeze handles both freezeall and freezeall/{id}.
func (h *ChallengeHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	var f models.Freeze
	if !decode(w, r, &f) {
		return
	}
	h.setFrozen(w, r, true)
}

// Thaw handles both thawall and thawall/{id}.
func (h *ChallengeHandler) Thaw(w http.ResponseWriter, r *http.Request) {
	h.setFrozen(w, r, false)
}

func (h *ChallengeHandler) setFrozen(w http.ResponseWriter, r *http.Request, frozen bool) {
	var id int64
	if hasURLParam(r, "id") {
		var ok bool
		if id, ok = idParam(w, r, "id"); !ok {
			return
		}
	}
	if err := h.Store.SetFrozen(r.Context(), id, frozen); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *ChallengeHandler) Flags(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	flags, err := h.Store.Flags(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

// SaveFlag creates a flag, or replaces it when the route carries flagId.
func (h *ChallengeHandler) SaveFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var flagID int64
	if hasURLParam(r, "flagId") {
		if flagID, ok = idParam(w, r, "flagId"); !ok {
			return
		}
	}
	var nf models.NewFlag
	if !decode(w, r, &nf) {
		return
	}
	f, err := h.Store.SaveFlag(r.Context(), id, flagID, nf)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if flagID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, f)
}

func (h *ChallengeHandler) DeleteFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	flagID, ok := idParam(w, r, "flagId")
	if !ok {
		return
	}
	if err := h.Store.DeleteFlag(r.Context(), id, flagID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) Hints(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	hints, err := h.Store.Hints(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hints)
}

// SaveHint creates a hint, or replaces it when the route carries hintId.
func (h *ChallengeHandler) SaveHint(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var hintID int64
	if hasURLParam(r, "hintId") {
		if hintID, ok = idParam(w, r, "hintId"); !ok {
			return
		}
	}
	var nh models.NewHint
	if !decode(w, r, &nh) {
		return
	}
	hint, err := h.Store.SaveHint(r.Context(), id, hintID, nh)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	status := http.StatusOK
	if hintID == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, hint)
}

func (h *ChallengeHandler) DeleteHint(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	hintID, ok := idParam(w, r, "hintId")
	if !ok {
		return
	}
	if err := h.Store.DeleteHint(r.Context(), id, hintID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChallengeHandler) Files(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	files, err := h.Store.Files(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Upload expects a multipart form with "file", "type" and "name" parts.
func (h *ChallengeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	typ := r.FormValue("type")
	if typ == "" {
		typ = "challenge"
	}
	f, err := h.Store.AddFile(r.Context(), id, name, typ, content)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// Download streams the raw bytes of one attachment.
func (h *ChallengeHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := idParam(w, r, "fileId")
	if !ok {
		return
	}
	f, content, err := h.Store.FileContent(r.Context(), id, fileID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	_, _ = w.Write(content)
}

func (h *ChallengeHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := idParam(w, r, "fileId")
	if !ok {
		return
	}
	if err := h.Store.DeleteFile(r.Context(), id, fileID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
