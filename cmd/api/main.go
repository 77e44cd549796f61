package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	server "seminargo/internal/adapters/http_server"
	"seminargo/internal/adapters/hotelapi"
	"seminargo/internal/adapters/observability"
	redisad "seminargo/internal/adapters/redis"
	"seminargo/internal/adapters/schedule"
	"seminargo/internal/app"
	"seminargo/internal/domain"
	"seminargo/internal/shared"
	mysqlrepo "seminargo/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	state := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.LogLimit, cfg.HistoryLimit)

	client, err := hotelapi.New(cfg.APIBase, cfg.APIToken, cfg.APIRPS, cfg.InvocationBudget)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize hotel API client")
	}

	runlog := app.NewRunLog(state, cfg.LogFlushSize)
	engine := app.NewEngine(client, repo, state, runlog, app.EngineConfig{
		PageSize:       cfg.PageSize,
		Budget:         cfg.InvocationBudget,
		StepDelay:      cfg.StepDelay,
		RetryDelay:     cfg.RetryDelay,
		StallThreshold: cfg.StallThreshold,
	})

	// scheduler: chains sync invocations and fires the periodic triggers
	sched, err := schedule.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scheduler")
	}
	engine.SetDispatcher(sched.Dispatcher(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.InvocationBudget)
		defer cancel()
		if err := engine.Step(ctx); err != nil {
			log.Error().Err(err).Msg("sync step failed")
		}
	}))

	trigger := func(t domain.SyncType) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.InvocationBudget)
			defer cancel()
			err := engine.Start(ctx, t)
			if errors.Is(err, domain.ErrRunActive) {
				// a run is in flight; resume it if its chain broke
				if err := engine.Nudge(ctx); err != nil {
					log.Error().Err(err).Msg("nudge failed")
				}
				return
			}
			if err != nil {
				log.Error().Err(err).Str("type", string(t)).Msg("scheduled sync start failed")
			}
		}
	}
	if err := sched.Every(cfg.SyncInterval, "incremental-sync", trigger(domain.SyncIncremental)); err != nil {
		log.Fatal().Err(err).Msg("register incremental trigger failed")
	}
	if err := sched.Cron(cfg.FullSyncCron, "full-sync", trigger(domain.SyncFull)); err != nil {
		log.Fatal().Err(err).Msg("register full sync trigger failed")
	}

	q := app.NewQueryService(repo, state)
	ded := app.NewDeduper(repo)

	// http
	srv := server.New(15 * time.Second)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Engine: engine, Q: q, Dedupe: ded})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("scheduler shutdown failed")
		}
		return httpSrv.Shutdown(shCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("shutdown complete")
}
