package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/ascend/internal/broker"
	"github.com/muhammadolammi/ascend/internal/career"
	"github.com/muhammadolammi/ascend/internal/config"
	"github.com/muhammadolammi/ascend/internal/quest"
	"github.com/muhammadolammi/ascend/internal/questapi"
	"github.com/muhammadolammi/ascend/internal/relay"
	"github.com/muhammadolammi/ascend/internal/resume"
	"github.com/muhammadolammi/ascend/internal/storage"
)

// App holds the wired dependencies of a running server.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Bus     *quest.Bus
	Ledgers *quest.Ledgers
	Storage *storage.Opened

	Analyzer    career.Analyzer
	ObjectStore resume.ObjectStore
	Recorder    resume.Recorder

	RabbitConn *amqp.Connection
	Consumer   *broker.Consumer

	closers []func() error
}

// newLedgerApp opens only the quest storage. The quests CLI uses it.
func newLedgerApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	opened, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open quest storage: %w", err)
	}
	bus := quest.NewBus()
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Bus:     bus,
		Ledgers: quest.NewLedgers(opened.Backend, bus),
		Storage: opened,
		closers: []func() error{opened.Close},
	}
	return app, nil
}

// newApp wires every optional integration the configuration enables.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app, err := newLedgerApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := app.wire(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	a.Analyzer = career.KeywordAnalyzer{}
	if cfg.GoogleAPIKey != "" {
		analyzer, err := career.NewAgentAnalyzer(ctx, cfg.GoogleAPIKey, career.KeywordAnalyzer{}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create agent: %w", err)
		}
		a.Analyzer = analyzer
		a.Logger.Info("resume agent enabled", "model", career.AgentModel)
	}

	if r2 := cfg.R2(); r2.Enabled() {
		store, err := resume.NewR2Store(ctx, r2)
		if err != nil {
			return err
		}
		a.ObjectStore = store
		a.Logger.Info("resume object store enabled", "provider", store.Provider(), "bucket", r2.Bucket)
	}

	if a.Storage.Queries != nil {
		a.Recorder = resume.NewDBRecorder(a.Storage.Queries)
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("error connecting to RabbitMQ: %w", err)
		}
		a.RabbitConn = conn
		a.closers = append(a.closers, conn.Close)

		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("error connecting to rabbitmq channel: %w", err)
		}
		a.closers = append(a.closers, ch.Close)

		fwd, err := broker.NewForwarder(ch, a.Logger)
		if err != nil {
			return err
		}
		unsubscribe := fwd.Attach(a.Bus)
		a.closers = append(a.closers, func() error { unsubscribe(); return nil })

		a.Consumer = broker.NewConsumer(a.Ledgers, broker.ConsumerConfig{
			URL:     cfg.RabbitMQURL,
			Workers: cfg.QuestWorkers,
			Logger:  a.Logger,
		})
	}
	return nil
}

// Handler mounts every HTTP surface on one mux.
func (a *App) Handler() (http.Handler, error) {
	proxy, err := relay.New(relay.Config{
		BaseURL:      a.Config.TamboURL,
		APIKey:       a.Config.TamboAPIKey,
		ExposeErrors: a.Config.ExposeErrors,
		Logger:       a.Logger,
	})
	if err != nil {
		return nil, err
	}

	quests := questapi.NewRouter(a.Ledgers, a.Bus, &questapi.Config{Logger: a.Logger})

	mux := http.NewServeMux()
	mux.Handle("/api/tambo/", http.StripPrefix("/api/tambo", proxy))
	mux.Handle("/api/quests", quests)
	mux.Handle("/api/quests/", quests)
	mux.Handle("/api/tools/", career.NewHandler(a.Analyzer, a.Ledgers, &career.HandlerConfig{Logger: a.Logger}))
	mux.Handle("/api/resume", resume.NewHandler(a.Ledgers, &resume.HandlerConfig{
		Logger:   a.Logger,
		Analyzer: a.Analyzer,
		Store:    a.ObjectStore,
		Recorder: a.Recorder,
	}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
