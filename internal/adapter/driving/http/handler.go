// Package httphandler is the JSON REST driving adapter over the wish service.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/wunschliste/internal/application"
	"github.com/ericfisherdev/wunschliste/internal/domain/port/driven"
)

// maxBodyBytes bounds request bodies. Image references are paths or URLs, so
// wishes stay small.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	wishSvc *application.WishService
	logger  *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(wishSvc *application.WishService, logger *slog.Logger) *Handler {
	return &Handler{
		wishSvc: wishSvc,
		logger:  logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request ID, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/wishes", h.ListWishes)
	mux.HandleFunc("POST /api/v1/wishes", h.AddWish)
	mux.HandleFunc("GET /api/v1/wishes/{id}", h.GetWish)
	mux.HandleFunc("PUT /api/v1/wishes/{id}", h.UpdateWish)
	mux.HandleFunc("DELETE /api/v1/wishes/{id}", h.RemoveWish)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// ListWishes returns all wishes, optionally filtered by ?owner=.
func (h *Handler) ListWishes(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")

	wishes, err := h.wishSvc.List(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to list wishes")
		return
	}

	writeJSON(w, http.StatusOK, NewWishResponses(wishes))
}

// GetWish returns a single wish by ID.
func (h *Handler) GetWish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	wish, err := h.wishSvc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to get wish", "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toWishResponse(*wish))
}

// AddWish creates a wish from the request body.
func (h *Handler) AddWish(w http.ResponseWriter, r *http.Request) {
	var req WishRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	wish, err := h.wishSvc.Add(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, "failed to add wish", "owner", req.Owner)
		return
	}

	writeJSON(w, http.StatusCreated, toWishResponse(*wish))
}

// UpdateWish replaces the editable fields of a wish.
func (h *Handler) UpdateWish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req WishRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	wish, err := h.wishSvc.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err, "failed to update wish", "id", id)
		return
	}

	writeJSON(w, http.StatusOK, toWishResponse(*wish))
}

// RemoveWish deletes a wish.
func (h *Handler) RemoveWish(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.wishSvc.Remove(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err, "failed to remove wish", "id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness and which storage backend is active.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	sel := h.wishSvc.Status()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Time:           time.Now().UTC().Format(time.RFC3339),
		Backend:        sel.Backend.String(),
		Fallback:       sel.IsFallback(),
		FallbackReason: sel.FallbackReason,
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service and port errors to HTTP statuses. Only
// unexpected errors are logged; their details never reach the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, application.ErrInvalidWish):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrWishNotFound):
		writeError(w, http.StatusNotFound, "wish not found")
	case errors.Is(err, driven.ErrWishAlreadyExists):
		writeError(w, http.StatusConflict, "wish already exists")
	default:
		attrs = append(attrs, "request_id", requestIDFrom(r.Context()), "error", err)
		h.logger.Error(msg, attrs...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
