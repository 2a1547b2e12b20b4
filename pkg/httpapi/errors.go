package httpapi

import (
	"context"
	"errors"
	"net/http"

	csvdoc "github.com/goliatone/go-csvdoc"
)

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, csvdoc.ErrUnknownRow), errors.Is(err, csvdoc.ErrUnknownColumn):
		return http.StatusNotFound
	case errors.Is(err, csvdoc.ErrDuplicateColumn):
		return http.StatusConflict
	case errors.Is(err, csvdoc.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	var parseErr *csvdoc.ParseError
	var validationErr *csvdoc.ValidationError
	if errors.As(err, &parseErr) || errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var parseErr *csvdoc.ParseError
	if errors.As(err, &parseErr) {
		resp.Line = parseErr.Line
	}
	var validationErr *csvdoc.ValidationError
	if errors.As(err, &validationErr) {
		resp.Column = validationErr.Column
		resp.RowID = validationErr.RowID
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, resp)
}
