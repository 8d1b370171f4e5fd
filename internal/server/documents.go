package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/repositories"
	"github.com/desertthunder/watchx/internal/shared"
)

const (
	documentRoute = "/api/users/{id}/watchlist"
	historyRoute  = documentRoute + "/history"

	maxDocumentBytes = 1 << 20
)

// DocumentHandler serves per-user watchlist records.
type DocumentHandler struct {
	docs   repositories.Documents
	logger *log.Logger
}

// NewDocumentHandler creates a handler backed by docs.
func NewDocumentHandler(docs repositories.Documents, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, logger: shared.WithLogger(logger, "handler", "documents")}
}

// Routes returns the HTTP routes this handler serves.
func (h *DocumentHandler) Routes() []string {
	return []string{
		"GET " + documentRoute,
		"PUT " + documentRoute,
		"PATCH " + documentRoute,
		"DELETE " + documentRoute,
		"GET " + historyRoute,
	}
}

func (h *DocumentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	switch r.Pattern {
	case "GET " + documentRoute:
		h.get(w, r, userID)
	case "PUT " + documentRoute:
		h.set(w, r, userID)
	case "PATCH " + documentRoute:
		h.update(w, r, userID)
	case "DELETE " + documentRoute:
		h.delete(w, r, userID)
	case "GET " + historyRoute:
		h.history(w, r, userID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request, userID string) {
	doc, err := h.docs.Get(r.Context(), userID)
	if err != nil {
		h.fail(w, err, "user", userID)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) set(w http.ResponseWriter, r *http.Request, userID string) {
	merge := false
	if v := r.URL.Query().Get("merge"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: merge=%q", shared.ErrInvalidArgument, v))
			return
		}
		merge = b
	}

	doc, err := decodeDocument(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.docs.Set(r.Context(), userID, doc, merge); err != nil {
		h.fail(w, err, "user", userID)
		return
	}

	h.logger.Debug("watchlist set", "user", userID, "merge", merge, "items", len(doc.Watchlist))
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) update(w http.ResponseWriter, r *http.Request, userID string) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.docs.Update(r.Context(), userID, doc); err != nil {
		h.fail(w, err, "user", userID)
		return
	}

	h.logger.Debug("watchlist updated", "user", userID, "items", len(doc.Watchlist))
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request, userID string) {
	if err := h.docs.Delete(r.Context(), userID); err != nil {
		h.fail(w, err, "user", userID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) history(w http.ResponseWriter, r *http.Request, userID string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: limit=%q", shared.ErrInvalidArgument, v))
			return
		}
		limit = n
	}

	events, err := h.docs.History(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, err, "user", userID)
		return
	}
	if events == nil {
		events = []repositories.DocumentEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// fail maps repository errors onto status codes.
func (h *DocumentHandler) fail(w http.ResponseWriter, err error, kv ...any) {
	switch {
	case errors.Is(err, shared.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("document store failed", append(kv, "error", err)...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (models.WatchlistDocument, error) {
	var doc models.WatchlistDocument

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	for _, item := range doc.Watchlist {
		if err := item.Validate(); err != nil {
			return doc, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	}
	if doc.Watchlist == nil {
		doc.Watchlist = []models.MediaReference{}
	}
	return doc, nil
}
