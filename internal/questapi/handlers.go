package questapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/muhammadolammi/ascend/internal/quest"
)

// Response wraps all API responses.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type completeResponse struct {
	Quest   quest.Quest `json:"quest"`
	Awarded bool        `json:"awarded"`
	TotalXP int         `json:"totalXP"`
}

type xpResponse struct {
	TotalXP int            `json:"totalXP"`
	Level   quest.Progress `json:"level"`
}

var errBadOwner = errors.New("owner must be 1-128 printable characters")

// WriteJSON writes data inside the Response envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

// WriteError writes an APIError inside the Response envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error: &APIError{Code: code, Message: message},
	})
}

// Owner resolves the ledger owner of a request: header, then cookie, then
// fallback.
func Owner(r *http.Request, fallback string) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		if c, err := r.Cookie(ownerCookie); err == nil {
			owner = strings.TrimSpace(c.Value)
		}
	}
	if owner == "" {
		return fallback, nil
	}
	if len(owner) > maxOwnerLen || strings.ContainsFunc(owner, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return "", errBadOwner
	}
	return owner, nil
}

func (rt *router) store(w http.ResponseWriter, r *http.Request) (*quest.Store, bool) {
	owner, err := Owner(r, rt.config.DefaultOwner)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_owner", err.Error())
		return nil, false
	}
	return rt.ledgers.For(owner), true
}

func (rt *router) handleList(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.store(w, r)
	if !ok {
		return
	}
	sum, err := s.Summary(r.Context())
	if err != nil {
		rt.internalError(w, r, "list quests", err)
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

func (rt *router) handleXP(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.store(w, r)
	if !ok {
		return
	}
	total, err := s.TotalXP(r.Context())
	if err != nil {
		rt.internalError(w, r, "total xp", err)
		return
	}
	WriteJSON(w, http.StatusOK, xpResponse{TotalXP: total, Level: quest.LevelFor(total)})
}

func (rt *router) handleComplete(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.store(w, r)
	if !ok {
		return
	}
	id := quest.ID(r.PathValue("id"))
	if !id.Valid() {
		WriteError(w, http.StatusNotFound, "unknown_quest", fmt.Sprintf("unknown quest %q", id))
		return
	}

	res, err := s.Complete(r.Context(), id)
	if err != nil {
		rt.internalError(w, r, "complete quest", err)
		return
	}
	total, err := s.TotalXP(r.Context())
	if err != nil {
		rt.internalError(w, r, "total xp", err)
		return
	}
	if res.Awarded {
		rt.config.Logger.Info("quest completed", "owner", s.Owner(), "quest", id, "xp", res.Quest.XP)
	}
	WriteJSON(w, http.StatusOK, completeResponse{Quest: res.Quest, Awarded: res.Awarded, TotalXP: total})
}

func (rt *router) handleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.store(w, r)
	if !ok {
		return
	}
	if err := s.Reset(r.Context()); err != nil {
		rt.internalError(w, r, "reset quests", err)
		return
	}
	sum, err := s.Summary(r.Context())
	if err != nil {
		rt.internalError(w, r, "list quests", err)
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

// handleEvents streams the owner's ledger events as SSE. The first event is
// a "ready" snapshot so a badge can render without a separate fetch.
func (rt *router) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.store(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "sse_not_supported", "SSE not supported")
		return
	}

	events := make(chan quest.Event, 16)
	owner := s.Owner()
	unsubscribe := rt.bus.Subscribe(func(_ context.Context, ev quest.Event) {
		if ev.Owner != owner {
			return
		}
		select {
		case events <- ev:
		default:
			rt.config.Logger.Warn("dropping quest event for slow subscriber", "owner", owner, "type", ev.Kind)
		}
	})
	defer unsubscribe()

	sum, err := s.Summary(r.Context())
	if err != nil {
		rt.internalError(w, r, "list quests", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "ready", sum); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(rt.config.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if err := writeEvent(w, string(ev.Kind), ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func (rt *router) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	rt.config.Logger.Error(op+" failed", "error", err, "path", r.URL.Path)
	WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
