package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"intellimind/backend/internal/api"
	"intellimind/backend/internal/config"
	"intellimind/backend/internal/database"
	"intellimind/backend/internal/feedback"
	"intellimind/backend/internal/imaging"
	"intellimind/backend/internal/llm"
	"intellimind/backend/internal/repository"
	"intellimind/backend/internal/service"
)

const (
	// turnTimeoutMargin keeps the router timeout above the LLM timeout.
	turnTimeoutMargin = 15 * time.Second
	sweepInterval     = time.Minute
	shutdownTimeout   = 10 * time.Second
	ollamaWaitTimeout = 30 * time.Second
)

// App owns every long-lived resource of the server.
type App struct {
	DB       *sql.DB
	Server   *http.Server
	Store    *service.ChatStore
	Registry *service.Registry

	llmClient llm.Client
	redis     *redis.Client
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}

	if err := app.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// NewApp builds the object graph described by cfg. The caller owns the
// returned App and must call Close.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)

	a := &App{DB: db}
	if err := a.build(ctx, cfg); err != nil {
		if cErr := a.Close(context.Background()); cErr != nil {
			slog.Warn("Failed to release resources after init error", "error", cErr)
		}
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	repo, err := a.newRepository(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := llm.NewClient(ctx, llm.Config{
		Provider: cfg.LLMProvider,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
		Options: llm.Options{
			Model:       cfg.LLMModel,
			Temperature: llm.Float32(cfg.LLMTemperature),
			MaxTokens:   cfg.LLMMaxTokens,
			TopP:        cfg.LLMTopP,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	a.llmClient = client
	if ollama, ok := client.(*llm.OllamaProvider); ok {
		waitForOllama(ctx, ollama, ollamaWaitTimeout)
	}
	slog.Info("LLM client ready", "provider", cfg.LLMProvider, "model", cfg.LLMModel)

	settingsService := service.NewSettingsService(a.DB)
	appSettings, err := settingsService.InitAndGet(ctx, cfg.InitialSystemPrompt)
	if err != nil {
		return fmt.Errorf("failed to initialize application settings: %w", err)
	}
	slog.Info("Loaded application settings", "chat_mode", appSettings.ChatMode)

	a.Store = service.NewChatStore(ctx, repo)
	a.Registry = service.NewRegistry(a.Store, service.SessionConfig{
		LLM:      llm.NewRateLimitedClient(client, cfg.LLMRequestsPerMinute),
		Settings: settingsService,
		Images:   imaging.NewThumbnailProcessor(cfg.ImageDir, cfg.ImageMaxDimension),
		Feedback: newFeedbackSink(cfg.FeedbackSink, a.DB),
		Timeout:  cfg.LLMTimeout,
	}, cfg.SessionIdleTimeout)

	turnTimeout := cfg.LLMTimeout + turnTimeoutMargin
	router := api.NewRouter(
		api.NewChatHandler(a.Store, settingsService),
		api.NewSessionHandler(a.Registry),
		turnTimeout,
	)

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      turnTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return nil
}

// newRepository selects the durable backend for chat history.
func (a *App) newRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.StorageBackend {
	case "sqlite":
		return repository.NewSQLiteRepository(a.DB), nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			// The store starts degraded and retries on every write.
			slog.Warn("Redis is not reachable, chat history starts empty", "addr", cfg.RedisAddr, "error", err)
		} else {
			slog.Info("Successfully connected to Redis.", "addr", cfg.RedisAddr)
		}
		return repository.NewRedisRepository(a.redis, cfg.RedisKey), nil
	case "", "json":
		return repository.NewJSONFileRepository(cfg.HistoryFile), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newFeedbackSink(kind string, db *sql.DB) feedback.Sink {
	if kind == "log" {
		return feedback.NewLogSink(slog.Default())
	}
	return feedback.NewSQLiteSink(db)
}

// Serve runs the HTTP server and the idle-session sweeper until ctx is done,
// then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go a.Registry.Run(sweepCtx, sweepInterval)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down HTTP server", "error", err)
	}
	return errors.Join(runErr, a.Close(shutdownCtx))
}

// Close ends every session, flushes pending history and releases the
// database, Redis and model connections.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Registry != nil {
		a.Registry.Shutdown()
	}
	if a.Store != nil {
		// Waiting for turns above may have used up ctx.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Store.Persist(flushCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to flush chat history: %w", err))
		}
	}
	if closer, ok := a.llmClient.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close llm client: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// waitForOllama polls the server until it answers or timeout elapses. A model
// that is still down only makes turns fail, so startup continues either way.
func waitForOllama(ctx context.Context, provider *llm.OllamaProvider, timeout time.Duration) {
	slog.Info("Waiting for Ollama to be ready...")
	deadline := time.Now().Add(timeout)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := provider.Ping(pingCtx)
		cancel()
		if err == nil {
			slog.Info("Ollama is ready.")
			return
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			slog.Warn("Ollama is not reachable, continuing without it", "error", err)
			return
		}
		slog.Debug("Ollama not ready yet, retrying in 3 seconds...", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(3 * time.Second):
		}
	}
}
