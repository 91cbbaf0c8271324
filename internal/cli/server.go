package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trivia-service/internal/app"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	redisnames "trivia-service/internal/infra/redis"
	"trivia-service/internal/logging"
	transport "trivia-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var questions string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the trivia engine, scoreboard scheduler and websocket bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, questions)
		},
	}
	cmd.Flags().StringVar(&questions, "questions", "", "optional YAML corpus imported before the first round")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag, questionsPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := logging.NewLogger(cfg.Debug)
	defer logger.Sync()
	ctx = logging.WithLogger(ctx, logger)

	// !exit signals this process, so it ends up here as a graceful shutdown.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if questionsPath != "" {
		if _, err := importQuestions(ctx, store, questionsPath); err != nil {
			return err
		}
	}

	names, err := newNameDirectory(cfg, logger)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	hub := transport.NewHub(logger.Named("hub"))
	handlers := hub.Handlers()
	handlers.DisplayName = app.DisplayNameFunc(names, logger)

	engine, err := app.NewEngine(ctx, store, app.Options{
		AdminUID:              cfg.Trivia.AdminUID,
		MinMatchingCharacters: cfg.Trivia.MinMatchingCharacters,
		Platform:              cfg.Trivia.Platform,
		Location:              loc,
	}, handlers)
	if err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		if errors.Is(err, domain.ErrNoQuestions) {
			return fmt.Errorf("%w: run import or pass --questions", err)
		}
		return err
	}

	scheduler, err := app.NewScheduler(ctx, engine, scheduleEntries(cfg), loc)
	if err != nil {
		return err
	}
	scheduler.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(engine, hub, names, logger).ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infow("starting trivia service", "port", finalPort, "scheduled", scheduler.Len())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infow("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warnw("scoreboard job still running at shutdown")
		}
		return err
	})
	return g.Wait()
}

func newNameDirectory(cfg config.Config, logger *zap.SugaredLogger) (app.NameDirectory, error) {
	local, err := memory.NewNameDirectory(cfg.Names.CacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.Redis.Addr == "" {
		return local, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Infow("using redis name directory", "addr", cfg.Redis.Addr)
	return &layeredNames{
		local:  local,
		shared: redisnames.NewNameDirectory(client, local, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)),
		logger: logger.Named("names"),
	}, nil
}

func scheduleEntries(cfg config.Config) []app.ScheduleEntry {
	entries := make([]app.ScheduleEntry, 0, len(cfg.Trivia.ScoreboardSchedule))
	for _, s := range cfg.Trivia.ScoreboardSchedule {
		entries = append(entries, app.ScheduleEntry{Spec: s.Time, DaysAgo: s.DaysAgo})
	}
	return entries
}
