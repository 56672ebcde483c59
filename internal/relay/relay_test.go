package relay

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upstreamCall struct {
	Method        string
	Path          string
	EscapedPath   string
	RawQuery      string
	Authorization string
	ContentType   string
	Body          string
}

// fakeUpstream records every call and answers with fn.
func fakeUpstream(t *testing.T, fn http.HandlerFunc) (*httptest.Server, *atomic.Int64, chan upstreamCall) {
	t.Helper()
	var count atomic.Int64
	calls := make(chan upstreamCall, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		body, _ := io.ReadAll(r.Body)
		calls <- upstreamCall{
			Method:        r.Method,
			Path:          r.URL.Path,
			EscapedPath:   r.URL.EscapedPath(),
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(body),
		}
		fn(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &count, calls
}

func newTestRelay(t *testing.T, base, key string) *httptest.Server {
	t.Helper()
	h, err := New(Config{
		BaseURL: base + "/v1",
		APIKey:  key,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("/api/tambo/", http.StripPrefix("/api/tambo", h))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	require.ErrorIs(t, err, ErrMissingBaseURL)

	_, err = New(Config{BaseURL: "api.example.com/v1"})
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	_, err = New(Config{BaseURL: "https://api.example.com/v1/"})
	require.NoError(t, err, "a missing key is a per-request failure, not a construction error")
}

func TestMissingKeyFailsClosed(t *testing.T) {
	upstream, count, _ := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := newTestRelay(t, upstream.URL, "")

	for _, tc := range []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPost, `{"message":"hi"}`},
		{http.MethodPut, `{}`},
		{http.MethodDelete, ""},
	} {
		req, err := http.NewRequest(tc.method, srv.URL+"/api/tambo/threads?limit=10", strings.NewReader(tc.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, tc.method)
		assert.NotEmpty(t, body["error"], tc.method)
	}
	assert.Zero(t, count.Load(), "no upstream call without a key")
}

func TestGetForwardsPathQueryAndKey(t *testing.T) {
	upstream, _, calls := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"items":[1,2,3]}`))
	})
	srv := newTestRelay(t, upstream.URL, "secret-key")

	resp, err := http.Get(srv.URL + "/api/tambo/threads/abc/messages?limit=10&cursor=a%2Fb")
	require.NoError(t, err)
	defer resp.Body.Close()

	call := <-calls
	assert.Equal(t, http.MethodGet, call.Method)
	assert.Equal(t, "/v1/threads/abc/messages", call.Path)
	assert.Equal(t, "limit=10&cursor=a%2Fb", call.RawQuery, "query string is forwarded verbatim")
	assert.Equal(t, "Bearer secret-key", call.Authorization)
	assert.Empty(t, call.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[1,2,3]}`, string(data))
	assert.NotContains(t, string(data), "secret-key")
}

func TestJSONPassthroughKeepsStatusAndBody(t *testing.T) {
	const upstreamBody = `{"error":{"code":"rate_limited","retryAfter":12.50},"big":12345678901234567890,"html":"<b>&</b>"}`
	upstream, _, calls := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(upstreamBody))
	})
	srv := newTestRelay(t, upstream.URL, "k")

	resp, err := http.Post(srv.URL+"/api/tambo/threads/advance", "application/json", strings.NewReader(`{"content":[{"type":"text","text":"hello"}],"n":1.0}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	call := <-calls
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/v1/threads/advance", call.Path)
	assert.Equal(t, "application/json", call.ContentType)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"hello"}],"n":1.0}`, call.Body)

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, upstreamBody, string(data))
	assert.Contains(t, string(data), "12345678901234567890", "numbers are not rounded through float64")
}

func TestStreamPassthroughIsUnbufferedAndUntouched(t *testing.T) {
	chunks := []string{"data: a\n\n", "data: b\n\n"}
	release := make(chan struct{})
	upstream, _, calls := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte(chunks[0]))
		flusher.Flush()
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
		_, _ = w.Write([]byte(chunks[1]))
		flusher.Flush()
	})
	srv := newTestRelay(t, upstream.URL, "k")

	resp, err := http.Post(srv.URL+"/api/tambo/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	<-calls

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "keep-alive", resp.Header.Get("Connection"))

	rd := bufio.NewReader(resp.Body)
	first := make([]byte, len(chunks[0]))
	_, err = io.ReadFull(rd, first)
	require.NoError(t, err, "first chunk arrives before upstream finishes")
	assert.Equal(t, chunks[0], string(first))

	close(release)
	rest, err := io.ReadAll(rd)
	require.NoError(t, err)
	assert.Equal(t, chunks[1], string(rest))
}

func TestStreamKeepsUpstreamStatus(t *testing.T) {
	upstream, _, _ := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson-stream")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("not json at all\x00\xff"))
	})
	srv := newTestRelay(t, upstream.URL, "k")

	resp, err := http.Get(srv.URL + "/api/tambo/runs/1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "not json at all\x00\xff", string(data))
}

func TestUpstreamFailuresAreFlattened(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		upstream, _, _ := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
		})
		srv := newTestRelay(t, upstream.URL, "k")

		resp, err := http.Get(srv.URL + "/api/tambo/threads")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body errorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "proxy request failed", body.Error)
		assert.Empty(t, body.Detail)
	})

	t.Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		base := dead.URL
		dead.Close()

		h, err := New(Config{
			BaseURL:      base,
			APIKey:       "k",
			ExposeErrors: true,
			Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/threads", nil))

		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "proxy request failed", body.Error)
		assert.NotEmpty(t, body.Detail, "detail is exposed outside production")
		assert.NotContains(t, body.Detail, "Bearer")
	})
}

func TestRequestValidation(t *testing.T) {
	upstream, count, _ := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := newTestRelay(t, upstream.URL, "k")

	resp, err := http.Post(srv.URL+"/api/tambo/chat", "application/json", strings.NewReader(`{"broken"`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/tambo/chat", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "POST requires a body")

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/tambo/chat", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	assert.Zero(t, count.Load())

	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/api/tambo/threads/1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "empty upstream body keeps its status")
	assert.EqualValues(t, 1, count.Load())
}

func TestEncodedSlashStaysInSegment(t *testing.T) {
	upstream, _, calls := fakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	srv := newTestRelay(t, upstream.URL, "k")

	resp, err := http.Get(srv.URL + "/api/tambo/threads/a%2Fb/messages")
	require.NoError(t, err)
	resp.Body.Close()

	call := <-calls
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/v1/threads/a%2Fb/messages", call.EscapedPath)
}

func TestSegmentsAndUpstreamURL(t *testing.T) {
	segs, err := Segments("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, segs)

	segs, err = Segments("//a///b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, segs)

	segs, err = Segments("/threads/a%2Fb/x%20y")
	require.NoError(t, err)
	assert.Equal(t, []string{"threads", "a/b", "x y"}, segs)

	segs, err = Segments("/")
	require.NoError(t, err)
	assert.Empty(t, segs)

	_, err = Segments("/bad%zz")
	require.Error(t, err)

	assert.Equal(t, "https://up/v1/a/b/c", UpstreamURL("https://up/v1", []string{"a", "b", "c"}, ""))
	assert.Equal(t, "https://up/v1/a/b/c?x=1&y=2", UpstreamURL("https://up/v1/", []string{"a", "b", "c"}, "x=1&y=2"))
	assert.Equal(t, "https://up/v1/a%20b", UpstreamURL("https://up/v1", []string{"a b"}, ""))
	assert.Equal(t, "https://up/v1/threads/a%2Fb", UpstreamURL("https://up/v1", []string{"threads", "a/b"}, ""))
}

func TestIsStream(t *testing.T) {
	assert.True(t, IsStream("text/event-stream"))
	assert.True(t, IsStream("text/event-stream; charset=utf-8"))
	assert.True(t, IsStream("application/octet-STREAM"))
	assert.False(t, IsStream("application/json"))
	assert.False(t, IsStream(""))
}
