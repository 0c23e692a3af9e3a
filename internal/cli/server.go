package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"smart-quiz-service/internal/app"
	"smart-quiz-service/internal/config"
	"smart-quiz-service/internal/infra/memory"
	pgstore "smart-quiz-service/internal/infra/postgres"
	redisinfra "smart-quiz-service/internal/infra/redis"
	"smart-quiz-service/internal/ratelimit"
	transport "smart-quiz-service/internal/transport/http"
	"smart-quiz-service/internal/tts"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var store app.Store = memory.NewStore()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewStore(pool)
	} else {
		log.Printf("no postgres url configured, using in-memory store")
	}

	var registry app.SessionRegistry = memory.NewSessionRegistry()
	if redisClient != nil {
		registry = redisinfra.NewSessionRegistry(redisClient, config.Duration(cfg.Redis.TTL, 2*time.Hour))
	}

	idleTimeout := config.Duration(cfg.Session.IdleTimeout, app.DefaultIdleTimeout)
	engine := app.NewEngine(store, registry,
		app.WithIdleTimeout(idleTimeout),
		app.WithQuestionCount(cfg.Session.QuestionCount),
	)
	importer := app.NewImporter(store, cfg.Import.MaxRows)
	analytics := app.NewAnalytics(store,
		app.WithRecentScores(config.IntOr(cfg.Analytics.RecentScores, app.DefaultRecentScores)),
		app.WithTrendThreshold(config.FloatOr(cfg.Analytics.TrendThreshold, app.DefaultTrendThreshold)),
	)

	var speech *tts.Client
	if cfg.Speech.Endpoint != "" {
		var window ratelimit.Window = ratelimit.NewMemoryWindow()
		if redisClient != nil {
			window = redisinfra.NewRateWindow(redisClient)
		}
		limiter := ratelimit.New(window, ratelimit.Config{
			Key:        "speech",
			Limit:      config.IntOr(cfg.Speech.RateLimit, 50),
			Per:        config.Duration(cfg.Speech.RateWindow, time.Minute),
			MaxRetries: config.IntOr(cfg.Speech.MaxRetries, 2),
			Backoff:    config.Duration(cfg.Speech.RetryBackoff, 200*time.Millisecond),
			MaxPayload: config.IntOr(cfg.Speech.MaxTextLen, 1000),
		})
		speech = tts.NewClient(tts.Options{
			Endpoint: cfg.Speech.Endpoint,
			APIKey:   cfg.Speech.APIKey,
			Model:    cfg.Speech.Model,
		}, limiter)
	} else {
		log.Printf("no speech endpoint configured, /speech disabled")
	}

	api := transport.NewAPI(store, engine, importer, analytics, speech)
	wsHandler := transport.NewWSHandler(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	api.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	// The engine runs no timers of its own; the server drives the expiry sweep.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(config.Duration(cfg.Session.SweepInterval, time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if swept := engine.SweepExpired(time.Now()); swept > 0 {
					log.Printf("abandoned %d expired sessions", swept)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}
	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
