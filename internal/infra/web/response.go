package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"carechat/internal/domain"
)

// Response envelope. Every JSON endpoint answers with either
// {ok:true, data:...} or {ok:false, error:{code, message}}.
type apiError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryAfterSec int    `json:"retryAfterSec,omitempty"`
}

type envelope struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: &apiError{Code: code, Message: message}})
}

// writeDomainError maps a use-case error to the HTTP surface. Upstream
// detail never leaks past the boundary.
func writeDomainError(w http.ResponseWriter, err error) {
	if rle, ok := domain.AsRateLimit(err); ok {
		sec := rle.RetryAfterSeconds()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(sec))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(envelope{OK: false, Error: &apiError{
			Code:          "RATE_LIMITED",
			Message:       "too many requests, slow down",
			RetryAfterSec: sec,
		}})
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid credentials")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "the assistant took too long to answer")
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "the assistant is unavailable right now")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// safeMessage is the stream-path twin of writeDomainError: a short stable
// text for the terminal error event.
func safeMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "stream cancelled"
	case errors.Is(err, domain.ErrTimeout):
		return "the assistant took too long to answer"
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrMisconfigured):
		return "the assistant is unavailable right now"
	default:
		return "internal error"
	}
}
