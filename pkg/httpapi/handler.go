// Package httpapi exposes a csvdoc Engine over JSON for the browser editor.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	csvdoc "github.com/goliatone/go-csvdoc"
)

// DefaultMaxUploadBytes caps CSV bodies when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Handler serves one engine.
type Handler struct {
	engine         *csvdoc.Engine
	logger         *slog.Logger
	maxUploadBytes int64
	clock          func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// WithClock sets the time used to name exports.
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// New builds a handler for engine.
func New(engine *csvdoc.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:         engine,
		logger:         slog.New(slog.DiscardHandler),
		maxUploadBytes: DefaultMaxUploadBytes,
		clock:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Router returns a chi router with the API mounted under /api/v1.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Route("/api/v1", h.RegisterHTTP)
	return r
}

// RegisterHTTP registers the document endpoints on r.
func (h *Handler) RegisterHTTP(r chi.Router) {
	r.Get("/document", h.handleDocument)
	r.Put("/document", h.handleLoadFile)
	r.Post("/document/restore", h.handleLoadDefault)
	r.Get("/document/export", h.handleExport)
	r.Post("/document/flush", h.handleFlush)
	r.Get("/document/check", h.handleCheck)
	r.Get("/document/openapi.json", h.handleOpenAPI)

	r.Post("/rows", h.handleAddRow)
	r.Delete("/rows", h.handleClearRows)
	r.Patch("/rows/{rowID}", h.handleEditRow)
	r.Delete("/rows/{rowID}", h.handleRemoveRow)
	r.Put("/rows/{rowID}/cells/{column}", h.handleEditCell)

	r.Post("/columns", h.handleAddColumn)
	r.Delete("/columns/{column}", h.handleRemoveColumn)
	r.Put("/columns/{column}/options", h.handleReplaceOptions)
	r.Put("/columns/{column}/width", h.handleSetWidth)

	r.Post("/history/undo", h.handleUndo)
	r.Post("/history/redo", h.handleRedo)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, documentResponse(h.engine))
}

// handleLoadFile replaces the document with the CSV request body.
// PUT /api/v1/document
func (h *Handler) handleLoadFile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
			return
		}
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "read body: " + err.Error()})
		return
	}
	if err := h.engine.LoadFile(string(body)); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("document uploaded", "bytes", len(body), "request_id", middleware.GetReqID(r.Context()))
	h.writeJSON(w, http.StatusOK, documentResponse(h.engine))
}

func (h *Handler) handleLoadDefault(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.LoadDefault(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, documentResponse(h.engine))
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := h.engine.ExportFilename(h.clock())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, h.engine.ExportText())
}

func (h *Handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Flush(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	violations, err := h.engine.Check(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if violations == nil {
		violations = []csvdoc.Violation{}
	}
	h.writeJSON(w, http.StatusOK, CheckResponse{Violations: violations})
}

func (h *Handler) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req RowRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := h.engine.AddRow(req.Values)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, RowCreatedResponse{ID: id})
}

func (h *Handler) handleClearRows(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.engine.ClearRows())
}

func (h *Handler) handleEditRow(w http.ResponseWriter, r *http.Request) {
	var req RowRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, h.engine.EditRow(chi.URLParam(r, "rowID"), req.Values))
}

func (h *Handler) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.engine.RemoveRow(chi.URLParam(r, "rowID")))
}

// handleEditCell sets one cell; commit=false sends keystroke-level edits.
// PUT /api/v1/rows/{rowID}/cells/{column}
func (h *Handler) handleEditCell(w http.ResponseWriter, r *http.Request) {
	column, ok := h.column(w, r)
	if !ok {
		return
	}
	var req CellRequest
	if !h.decode(w, r, &req) {
		return
	}
	commit := req.Commit == nil || *req.Commit
	h.respond(w, h.engine.EditCell(chi.URLParam(r, "rowID"), column, req.Value, commit))
}

func (h *Handler) handleAddColumn(w http.ResponseWriter, r *http.Request) {
	var req ColumnRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.AddColumn(req.Name, req.Constrained, req.Options); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, documentResponse(h.engine))
}

func (h *Handler) handleRemoveColumn(w http.ResponseWriter, r *http.Request) {
	column, ok := h.column(w, r)
	if !ok {
		return
	}
	h.respond(w, h.engine.RemoveColumn(column))
}

func (h *Handler) handleReplaceOptions(w http.ResponseWriter, r *http.Request) {
	column, ok := h.column(w, r)
	if !ok {
		return
	}
	var req OptionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, h.engine.ReplaceColumnOptions(column, req.Options))
}

func (h *Handler) handleSetWidth(w http.ResponseWriter, r *http.Request) {
	column, ok := h.column(w, r)
	if !ok {
		return
	}
	var req WidthRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.engine.SetColumnWidth(column, req.Width); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, h.engine.Undo())
}

func (h *Handler) handleRedo(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, h.engine.Redo())
}

func (h *Handler) writeHistory(w http.ResponseWriter, applied bool) {
	h.writeJSON(w, http.StatusOK, HistoryResponse{
		Applied: applied,
		CanUndo: h.engine.CanUndo(),
		CanRedo: h.engine.CanRedo(),
	})
}

// respond writes the document after a successful mutation.
func (h *Handler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, documentResponse(h.engine))
}

// column returns the unescaped {column} path parameter. Header names may
// contain spaces and slashes.
func (h *Handler) column(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "column")
	name, err := url.PathUnescape(raw)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid column name"})
		return "", false
	}
	return name, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("encode response failed", "status", status, "error", err)
	}
}
