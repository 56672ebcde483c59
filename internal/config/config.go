// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/muhammadolammi/ascend/internal/resume"
	"github.com/muhammadolammi/ascend/internal/storage"
)

var (
	ErrMissingTamboURL = errors.New("TAMBO_URL is required")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

type Config struct {
	Addr         string `env:"ASCEND_ADDR" envDefault:":8080"`
	TamboURL     string `env:"TAMBO_URL"`
	TamboAPIKey  string `env:"TAMBO_API_KEY"`
	ExposeErrors bool   `env:"ASCEND_EXPOSE_ERRORS" envDefault:"false"`

	LogLevel  string `env:"ASCEND_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"ASCEND_LOG_FORMAT" envDefault:"text"`

	QuestStore      string `env:"QUEST_STORE" envDefault:"file"`
	QuestDir        string `env:"QUEST_DIR" envDefault:"~/.ascend"`
	QuestSQLitePath string `env:"QUEST_SQLITE_PATH"`
	DBURL           string `env:"DB_URL"`

	RabbitMQURL  string `env:"RABBITMQ_URL"`
	QuestWorkers int    `env:"QUEST_WORKERS" envDefault:"3"`

	R2AccountID string `env:"R2_ACCCOUNT_ID"`
	R2Bucket    string `env:"R2_BUCKET"`
	R2AccessKey string `env:"R2_ACCESS_KEY"`
	R2SecretKey string `env:"R2_SECRET_KEY"`

	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
}

// Load reads the given .env files (".env" when none are named; missing
// files are ignored) and parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.TamboURL = strings.TrimSpace(cfg.TamboURL)
	cfg.QuestDir = expandHome(cfg.QuestDir)
	if cfg.QuestSQLitePath == "" {
		cfg.QuestSQLitePath = filepath.Join(cfg.QuestDir, "quests.db")
	}
	cfg.QuestSQLitePath = expandHome(cfg.QuestSQLitePath)
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate reports every problem that keeps the server from starting.
func (c *Config) Validate() error {
	var errs []error
	if c.TamboURL == "" {
		errs = append(errs, ErrMissingTamboURL)
	} else if u, err := url.Parse(c.TamboURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: TAMBO_URL must be an absolute http(s) URL", ErrInvalidConfig))
	}
	if !storage.Mode(c.QuestStore).Valid() {
		errs = append(errs, fmt.Errorf("%w: QUEST_STORE must be memory, file, sqlite or postgres, got %q", ErrInvalidConfig, c.QuestStore))
	}
	if storage.Mode(c.QuestStore) == storage.ModePostgres && c.DBURL == "" {
		errs = append(errs, fmt.Errorf("%w: QUEST_STORE=postgres needs DB_URL", ErrInvalidConfig))
	}
	if c.QuestWorkers < 1 {
		errs = append(errs, fmt.Errorf("%w: QUEST_WORKERS must be at least 1", ErrInvalidConfig))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%w: ASCEND_LOG_FORMAT must be text or json", ErrInvalidConfig))
	}
	r2 := c.R2()
	if !r2.Enabled() && (r2.AccountID != "" || r2.Bucket != "" || r2.AccessKey != "" || r2.SecretKey != "") {
		errs = append(errs, fmt.Errorf("%w: R2 needs R2_ACCCOUNT_ID, R2_BUCKET, R2_ACCESS_KEY and R2_SECRET_KEY", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are allowed but degrade the service.
func (c *Config) Warnings() []string {
	var out []string
	if c.TamboAPIKey == "" {
		out = append(out, "TAMBO_API_KEY is empty; relay requests will fail")
	}
	if storage.Mode(c.QuestStore) == storage.ModeMemory {
		out = append(out, "QUEST_STORE=memory; quest progress is lost on restart")
	}
	return out
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: ASCEND_LOG_LEVEL: %v", ErrInvalidConfig, err)
	}
	return lvl, nil
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Mode:       storage.Mode(c.QuestStore),
		Dir:        c.QuestDir,
		SQLitePath: c.QuestSQLitePath,
		DBURL:      c.DBURL,
	}
}

func (c *Config) R2() resume.R2Config {
	return resume.R2Config{
		AccountID: c.R2AccountID,
		Bucket:    c.R2Bucket,
		AccessKey: c.R2AccessKey,
		SecretKey: c.R2SecretKey,
	}
}

// NewLogger builds the process logger. It falls back to info level text
// output for values Validate would reject.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := c.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
