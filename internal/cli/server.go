package cli

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quizbowl-engine/internal/app"
	"quizbowl-engine/internal/config"
	"quizbowl-engine/internal/domain"
	"quizbowl-engine/internal/infra/memory"
	pgstore "quizbowl-engine/internal/infra/postgres"
	rediscache "quizbowl-engine/internal/infra/redis"
	"quizbowl-engine/internal/roundstate"
	transport "quizbowl-engine/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the competition engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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

	clock := clockwork.NewRealClock()

	var store app.Store = memory.NewStore()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		store = pgstore.NewStore(db)

		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	questions := app.NewStoreQuestionProvider(store)
	if cfg.Redis.Addr != "" && pool != nil {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		questionTTL := config.TTLDuration(cfg.Cache.QuestionTTL, 10*time.Minute)
		questions = rediscache.NewQuestionCache(redisClient, pgstore.NewQuestionLoader(pool), questionTTL)
	}

	services := transport.Services{
		Submissions: app.NewSubmissionService(store, questions, clock, log),
		Grading:     app.NewGradingService(store, questions, clock, log),
		Divisions:   app.NewDivisionService(store, clock, log),
		Rounds:      app.NewRoundService(store, clock, log),
		Questions:   app.NewQuestionService(store, questions, log),
		Admin:       app.NewAdminService(store, clock, nil, log),
		Store:       store,
	}

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	watcher := roundstate.NewWatcher(clock, clock.Now, 250*time.Millisecond, log)
	go watcher.Run(watchCtx, activeRoundSnapshot(store), func(view roundstate.View) {
		log.Debug().
			Str("phase", string(view.Phase)).
			Int("question", view.QuestionIndex).
			Int("secondsLeft", view.SecondsLeft).
			Msg("round view changed")
	}, services.Rounds)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(services, clock, cfg.Server.AdminToken, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting competition engine")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// activeRoundSnapshot feeds the watcher the currently active round, if any.
// With no active round the zero snapshot derives to the waiting phase.
func activeRoundSnapshot(store app.Store) func(context.Context) (roundstate.Snapshot, error) {
	return func(ctx context.Context) (roundstate.Snapshot, error) {
		rounds, err := store.Rounds().List(ctx)
		if err != nil {
			return roundstate.Snapshot{}, err
		}
		for _, round := range rounds {
			if round.Status != domain.RoundActive {
				continue
			}
			questions, err := store.Questions().ListByRound(ctx, round.ID)
			if err != nil {
				return roundstate.Snapshot{}, err
			}
			return roundstate.Snapshot{Round: round, QuestionCount: len(questions)}, nil
		}
		return roundstate.Snapshot{}, nil
	}
}
