// Package relay forwards requests to the upstream generative-UI API,
// attaching the server-held API key, and relays the answer back: event
// streams byte for byte, everything else as re-encoded JSON.
//
// The handler expects the route prefix to be stripped:
//
//	mux.Handle("/api/tambo/", http.StripPrefix("/api/tambo", h))
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request lifecycle states, reported in the completion log line.
const (
	stateAwaitingUpstream   = "awaiting_upstream"
	stateStreaming          = "streaming"
	stateBufferedResponding = "buffered_responding"
	stateDone               = "done"
	stateError              = "error"
)

const (
	headerRequestID = "X-Request-Id"
	streamChunkSize = 32 * 1024
)

var errInvalidBody = errors.New("invalid JSON body")

// Handler is the relay http.Handler. It holds no per-request state and is
// safe for concurrent use.
type Handler struct {
	cfg Config
	log *slog.Logger
}

// New validates cfg and builds a Handler.
func New(cfg Config) (*Handler, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Handler{cfg: cfg, log: cfg.Logger}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get(headerRequestID)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(headerRequestID, reqID)
	log := h.log.With("request_id", reqID, "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		w.Header().Set("Allow", "GET, POST, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	if h.cfg.APIKey == "" {
		log.Error("relay request rejected", "error", ErrMissingAPIKey)
		writeError(w, http.StatusInternalServerError, "missing upstream API key", "")
		return
	}

	segments, err := Segments(r.URL.EscapedPath())
	if err != nil {
		log.Warn("relay request rejected", "error", err)
		writeError(w, http.StatusBadRequest, "invalid path", "")
		return
	}
	if len(segments) == 0 {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	body, err := requestBody(r)
	if err != nil {
		log.Warn("relay request rejected", "error", err)
		writeError(w, http.StatusBadRequest, errInvalidBody.Error(), "")
		return
	}

	target := UpstreamURL(h.cfg.BaseURL, segments, r.URL.RawQuery)
	state := stateAwaitingUpstream
	resp, err := h.forward(r.Context(), r, target, body, reqID)
	if err != nil {
		h.fail(w, log, state, err)
		return
	}
	defer resp.Body.Close()

	if IsStream(resp.Header.Get("Content-Type")) {
		state = stateStreaming
		n, err := h.stream(w, resp)
		if err != nil {
			log.Warn("relay stream interrupted", "state", stateError, "from", state, "status", resp.StatusCode, "bytes", n, "error", err)
			return
		}
		log.Info("relay request", "state", stateDone, "mode", state, "status", resp.StatusCode, "bytes", n)
		return
	}

	state = stateBufferedResponding
	payload, err := readJSON(resp.Body)
	if err != nil {
		h.fail(w, log, state, fmt.Errorf("read upstream response: %w", err))
		return
	}
	if payload == nil {
		w.WriteHeader(resp.StatusCode)
	} else {
		writeJSON(w, resp.StatusCode, payload)
	}
	log.Info("relay request", "state", stateDone, "mode", state, "status", resp.StatusCode)
}

func (h *Handler) forward(ctx context.Context, r *http.Request, target string, body []byte, reqID string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept := r.Header.Get("Accept"); accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set(headerRequestID, reqID)

	resp, err := h.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	return resp, nil
}

// stream copies the upstream body to w, flushing after every read so that
// chunks reach the caller as soon as they arrive.
func (h *Handler) stream(w http.ResponseWriter, resp *http.Response) (int64, error) {
	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	rc := http.NewResponseController(w)
	flush := func() error {
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}
	if err := flush(); err != nil {
		return 0, err
	}

	var written int64
	buf := make([]byte, streamChunkSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, fmt.Errorf("write downstream: %w", werr)
			}
			if err := flush(); err != nil {
				return written, fmt.Errorf("flush downstream: %w", err)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read upstream: %w", rerr)
		}
	}
}

// fail flattens any upstream failure into the generic 500 shape.
func (h *Handler) fail(w http.ResponseWriter, log *slog.Logger, state string, err error) {
	log.Error("relay request failed", "state", stateError, "from", state, "error", err)
	detail := ""
	if h.cfg.ExposeErrors {
		detail = err.Error()
	}
	writeError(w, http.StatusInternalServerError, "proxy request failed", detail)
}

// Segments splits an escaped request path into its non-empty segments and
// unescapes each one, so an encoded slash stays inside its segment.
func Segments(escaped string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(escaped, "/") {
		if s == "" {
			continue
		}
		seg, err := url.PathUnescape(s)
		if err != nil {
			return nil, fmt.Errorf("path segment %q: %w", s, err)
		}
		out = append(out, seg)
	}
	return out, nil
}

// UpstreamURL joins base, the escaped segments and the raw query.
func UpstreamURL(base string, segments []string, rawQuery string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := strings.TrimRight(base, "/") + "/" + strings.Join(escaped, "/")
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

// IsStream reports whether an upstream content type must be passed through
// untouched.
func IsStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "stream")
}

// requestBody returns the re-serialized JSON body, or nil when the method
// carries none. POST requires a body; PUT and DELETE accept an empty one.
func requestBody(r *http.Request) ([]byte, error) {
	if r.Method == http.MethodGet || r.Body == nil {
		if r.Method == http.MethodPost {
			return nil, errInvalidBody
		}
		return nil, nil
	}

	v, err := readJSON(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if v == nil {
		if r.Method == http.MethodPost {
			return nil, errInvalidBody
		}
		return nil, nil
	}
	return encodeJSON(v)
}

// readJSON decodes a single JSON value, keeping numbers exact. An empty body
// yields (nil, nil).
func readJSON(rd io.Reader) (any, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return jsonValue{v}, nil
}

// jsonValue wraps a decoded value so that a literal JSON null is not
// mistaken for an empty body.
type jsonValue struct{ v any }

func (j jsonValue) MarshalJSON() ([]byte, error) { return encodeJSON(j.v) }

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := encodeJSON(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "proxy request failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Detail: detail})
}
