// Package questapi exposes the quest ledger over HTTP: JSON endpoints for
// reads and mutations, and a Server-Sent Events feed for badge updates.
package questapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/muhammadolammi/ascend/internal/quest"
)

const (
	DefaultOwner     = "default"
	DefaultHeartbeat = 15 * time.Second

	ownerHeader = "X-Ascend-Owner"
	ownerCookie = "ascend_owner"
	maxOwnerLen = 128
)

// Config holds API router configuration.
type Config struct {
	// Logger for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// DefaultOwner is used when a request names no owner.
	DefaultOwner string

	// Heartbeat is the interval between SSE keep-alive comments.
	Heartbeat time.Duration
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.DefaultOwner == "" {
		c.DefaultOwner = DefaultOwner
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = DefaultHeartbeat
	}
}

type router struct {
	ledgers *quest.Ledgers
	bus     *quest.Bus
	config  *Config
}

// NewRouter creates the quest API handler. Mount it at both "/api/quests"
// and "/api/quests/".
func NewRouter(ledgers *quest.Ledgers, bus *quest.Bus, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.applyDefaults()

	r := &router{ledgers: ledgers, bus: bus, config: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/quests", r.handleList)
	mux.HandleFunc("GET /api/quests/xp", r.handleXP)
	mux.HandleFunc("GET /api/quests/events", r.handleEvents)
	mux.HandleFunc("POST /api/quests/reset", r.handleReset)
	mux.HandleFunc("POST /api/quests/{id}/complete", r.handleComplete)

	return recoveryMiddleware(mux, cfg.Logger)
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
