package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"seminargo/internal/adapters/hotelapi"
	"seminargo/internal/adapters/observability"
	redisad "seminargo/internal/adapters/redis"
	"seminargo/internal/app"
	"seminargo/internal/domain"
	"seminargo/internal/shared"
	mysqlrepo "seminargo/internal/storage/mysql"
)

// synctl runs operator commands against the same stores the daemon uses.
// `start` drives a whole sync to completion in-process, stepping the engine
// synchronously instead of through the scheduler.

func main() {
	var (
		cmdName = flag.String("cmd", "status", "command: start | status | cancel | duplicates")
		full    = flag.Bool("full", false, "start: run a full sync (with withdrawal pass)")
		apply   = flag.Bool("apply", false, "duplicates: trash losing records instead of previewing")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}

	repo := mysqlrepo.New(db)
	state := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.LogLimit, cfg.HistoryLimit)

	ctx := context.Background()

	switch *cmdName {
	case "start":
		runSync(ctx, cfg, repo, state, *full)
	case "status":
		printStatus(ctx, repo, state)
	case "cancel":
		cancelSync(ctx, cfg, repo, state)
	case "duplicates":
		runCleanup(ctx, repo, *apply)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", *cmdName)
		flag.Usage()
		os.Exit(2)
	}
}

// inlineDispatcher captures the engine's successor request so the CLI can
// step it in a loop. Capacity 1 suffices: the engine enqueues at most one
// successor per step.
type inlineDispatcher struct{ pending chan time.Duration }

func (d *inlineDispatcher) Enqueue(delay time.Duration) error {
	select {
	case d.pending <- delay:
		return nil
	default:
		return errors.New("successor already queued")
	}
}

func newEngine(cfg shared.Config, repo domain.HotelRepository, state domain.SyncStateStore) (*app.Engine, *inlineDispatcher) {
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
	disp := &inlineDispatcher{pending: make(chan time.Duration, 1)}
	engine.SetDispatcher(disp)
	return engine, disp
}

func runSync(ctx context.Context, cfg shared.Config, repo domain.HotelRepository, state domain.SyncStateStore, full bool) {
	engine, disp := newEngine(cfg, repo, state)

	t := domain.SyncIncremental
	if full {
		t = domain.SyncFull
	}
	if err := engine.Start(ctx, t); err != nil {
		if errors.Is(err, domain.ErrRunActive) {
			log.Fatal().Msg("a sync run is already in progress; cancel it first or wait")
		}
		log.Fatal().Err(err).Msg("start sync failed")
	}

	for {
		select {
		case delay := <-disp.pending:
			time.Sleep(delay)
			if err := engine.Step(ctx); err != nil {
				log.Fatal().Err(err).Msg("sync halted")
			}
		default:
			// no successor queued: the run finished
			printStatus(ctx, repo, state)
			return
		}
	}
}

func printStatus(ctx context.Context, repo domain.HotelRepository, state domain.SyncStateStore) {
	q := app.NewQueryService(repo, state)
	view, err := q.Progress(ctx, 20)
	if err != nil {
		log.Fatal().Err(err).Msg("load progress failed")
	}
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode progress failed")
	}
	fmt.Println(string(out))
}

func cancelSync(ctx context.Context, cfg shared.Config, repo domain.HotelRepository, state domain.SyncStateStore) {
	engine, _ := newEngine(cfg, repo, state)
	if err := engine.Cancel(ctx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Fatal().Msg("no sync run in progress")
		}
		log.Fatal().Err(err).Msg("cancel failed")
	}
	fmt.Println("sync cancelled")
}

func runCleanup(ctx context.Context, repo domain.HotelRepository, apply bool) {
	rep, err := app.NewDeduper(repo).Cleanup(ctx, !apply)
	if err != nil {
		log.Fatal().Err(err).Msg("duplicate cleanup failed")
	}
	for _, d := range rep.Details {
		fmt.Println(d)
	}
	verb := "would trash"
	if apply {
		verb = "trashed"
	}
	fmt.Printf("%d groups, %d kept, %s %d\n", rep.Groups, rep.Kept, verb, rep.Trashed)
}
