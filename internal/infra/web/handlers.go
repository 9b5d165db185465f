package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"carechat/internal/domain/model"
	"carechat/internal/infra/logging"
	"carechat/internal/infra/sse"
	"carechat/internal/usecase"
)

type sendRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
	Stream  bool   `json:"stream"`
}

type sendResponse struct {
	Message    *model.ChatMessage `json:"message"`
	Language   string             `json:"language"`
	Direction  string             `json:"direction"`
	Disclaimer string             `json:"disclaimer,omitempty"`
	Fallback   bool               `json:"fallback,omitempty"`
}

type listResponse struct {
	Mode     string               `json:"mode"`
	Messages []*model.ChatMessage `json:"messages"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body")
		return
	}
	mode, ok := model.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	ctx := logging.WithMode(r.Context(), string(mode))

	in := usecase.SendInput{
		UserID:  UserID(ctx),
		IP:      clientIP(r),
		Mode:    mode,
		Message: req.Message,
	}

	if req.Stream || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.sendStreamed(ctx, w, in)
		return
	}

	res, err := s.chat.Send(ctx, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, sendResponse{
		Message:    res.AssistantMessage,
		Language:   string(res.Language),
		Direction:  res.Direction,
		Disclaimer: res.Disclaimer,
		Fallback:   res.Fallback,
	})
}

// sendStreamed runs the turn over the event-stream wire format. Nothing is
// written before the use case reaches its meta callback, so failures ahead
// of that point (validation, rate limit) still get a plain HTTP status.
func (s *Server) sendStreamed(ctx context.Context, w http.ResponseWriter, in usecase.SendInput) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	relay := sse.NewRelay(w, cancel)
	in.Sink = &relaySink{relay: relay, w: w, mode: string(in.Mode)}

	res, err := s.chat.Send(ctx, in)
	switch {
	case err == nil:
		_ = relay.Done(sse.Done{
			Mode:       string(in.Mode),
			Language:   string(res.Language),
			Direction:  res.Direction,
			Answer:     res.AssistantMessage.Content,
			Disclaimer: res.Disclaimer,
		})
	case !relay.Started():
		writeDomainError(w, err)
	default:
		// Best effort: if the peer is gone the relay swallows the write.
		_ = relay.Error(safeMessage(err))
	}
}

type relaySink struct {
	relay *sse.Relay
	w     http.ResponseWriter
	mode  string
}

func (rs *relaySink) Meta(language, direction string) {
	sse.SetHeaders(rs.w)
	_ = rs.relay.Meta(sse.Meta{Mode: rs.mode, Language: language, Direction: direction})
}

func (rs *relaySink) Token(fragment string) {
	_ = rs.relay.Token(fragment)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	mode, ok := model.ParseMode(r.URL.Query().Get("mode"))
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", fmt.Sprintf("unknown mode %q", r.URL.Query().Get("mode")))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "limit must be an integer")
			return
		}
		limit = n
	}

	msgs, err := s.chat.List(r.Context(), usecase.ListInput{
		UserID: UserID(r.Context()),
		IP:     clientIP(r),
		Mode:   mode,
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*model.ChatMessage{}
	}
	writeData(w, http.StatusOK, listResponse{Mode: string(mode), Messages: msgs})
}

// clientIP resolves the caller address behind proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
