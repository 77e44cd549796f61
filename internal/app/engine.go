package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"seminargo/internal/adapters/observability"
	"seminargo/internal/domain"
)

type EngineConfig struct {
	PageSize       int
	Budget         time.Duration
	StepDelay      time.Duration
	RetryDelay     time.Duration
	StallThreshold time.Duration
	LogExcerpt     int
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.PageSize <= 0 {
		c.PageSize = 200
	}
	if c.Budget <= 0 {
		c.Budget = 50 * time.Second
	}
	if c.StepDelay <= 0 {
		c.StepDelay = time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 30 * time.Second
	}
	if c.StallThreshold <= 0 {
		c.StallThreshold = 2 * time.Hour
	}
	if c.LogExcerpt <= 0 {
		c.LogExcerpt = 50
	}
	return c
}

// Engine drives the batched hotel synchronization: paginated create/update,
// then a finalize pass withdrawing records absent from the remote id set.
// Each Step is one time-boxed invocation that re-arms its successor through
// the dispatcher; the SyncRun document in the state store carries all
// progress between invocations.
type Engine struct {
	api   domain.HotelAPI
	repo  domain.HotelRepository
	state domain.SyncStateStore
	disp  domain.Dispatcher
	logb  *RunLog
	cfg   EngineConfig
	now   func() time.Time
}

func NewEngine(api domain.HotelAPI, repo domain.HotelRepository, state domain.SyncStateStore, logb *RunLog, cfg EngineConfig) *Engine {
	return &Engine{
		api:   api,
		repo:  repo,
		state: state,
		logb:  logb,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// SetDispatcher wires the deferred-job facility. Set once at startup; the
// dispatcher itself needs a reference to Step, hence the two-phase setup.
func (e *Engine) SetDispatcher(d domain.Dispatcher) { e.disp = d }

// Start begins a new run. A running run within the stall threshold wins
// (ErrRunActive); one stalled beyond it is force-archived as failed first.
func (e *Engine) Start(ctx context.Context, t domain.SyncType) error {
	cur, err := e.state.LoadRun(ctx)
	if err != nil {
		return err
	}
	if cur != nil {
		if cur.Status == domain.RunRunning {
			if e.now().Sub(cur.StartedAt) < e.cfg.StallThreshold {
				return domain.ErrRunActive
			}
			log.Warn().Time("started_at", cur.StartedAt).Msg("archiving stuck sync run")
			cur.Status = domain.RunFailed
			cur.Error = "stalled beyond threshold"
			fin := e.now().UTC()
			cur.FinishedAt = &fin
			observability.ObserveRun(string(domain.RunFailed))
			if err := e.state.ArchiveRun(ctx, *cur, e.cfg.LogExcerpt); err != nil {
				return err
			}
		}
		if err := e.state.ClearRun(ctx); err != nil {
			return err
		}
	}

	run := domain.NewSyncRun(t, e.now())
	ok, err := e.state.BeginRun(ctx, run)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrRunActive
	}
	e.logb.Add(ctx, domain.LogInfo, "", fmt.Sprintf("%s sync started", t))
	e.logb.Flush(ctx)
	return e.disp.Enqueue(0)
}

// Step executes one invocation of the state machine. Transient errors log
// and re-arm after the retry delay; a non-durable progress write halts the
// chain instead, so no successor can double-process the page.
func (e *Engine) Step(ctx context.Context) error {
	run, err := e.state.LoadRun(ctx)
	if err != nil {
		return err
	}
	if run == nil || run.Status != domain.RunRunning {
		return nil // cancelled or finished meanwhile; lazy no-op
	}

	var stepErr error
	switch run.Phase {
	case domain.PhaseCreateUpdate:
		stepErr = e.stepPage(ctx, run)
	case domain.PhaseFinalize:
		stepErr = e.finalize(ctx, run)
	default:
		return nil
	}
	e.logb.Flush(ctx)

	if stepErr == nil {
		return nil
	}
	if errors.Is(stepErr, domain.ErrProgressNotDurable) {
		log.Error().Err(stepErr).Msg("sync halted: progress not durable, no successor scheduled")
		e.logb.Add(ctx, domain.LogError, "", "progress write failed; sync halted until next trigger")
		e.logb.Flush(ctx)
		return stepErr
	}
	log.Warn().Err(stepErr).Dur("retry_in", e.cfg.RetryDelay).Msg("sync step failed, retrying")
	e.logb.Add(ctx, domain.LogError, "", stepErr.Error())
	e.logb.Flush(ctx)
	return e.disp.Enqueue(e.cfg.RetryDelay)
}

// Cancel marks the run cancelled and archives it. Cooperative: an already
// queued step observes the missing run document and exits as a no-op.
func (e *Engine) Cancel(ctx context.Context) error {
	run, err := e.state.LoadRun(ctx)
	if err != nil {
		return err
	}
	if run == nil || run.Status != domain.RunRunning {
		return domain.ErrNotFound
	}
	run.Status = domain.RunCancelled
	fin := e.now().UTC()
	run.FinishedAt = &fin
	e.logb.Add(ctx, domain.LogWarning, "", "sync cancelled by operator")
	e.logb.Flush(ctx)
	observability.ObserveRun(string(domain.RunCancelled))
	if err := e.state.ArchiveRun(ctx, *run, e.cfg.LogExcerpt); err != nil {
		return err
	}
	return e.state.ClearRun(ctx)
}

// Nudge re-arms a run whose invocation chain broke (crash after persisting
// progress but before enqueueing the successor). Called by the periodic
// trigger when Start reports an active run.
func (e *Engine) Nudge(ctx context.Context) error {
	run, err := e.state.LoadRun(ctx)
	if err != nil {
		return err
	}
	if run == nil || run.Status != domain.RunRunning {
		return nil
	}
	if e.now().Sub(run.HeartbeatAt) < e.cfg.Budget+e.cfg.RetryDelay {
		return nil
	}
	log.Warn().Time("heartbeat_at", run.HeartbeatAt).Msg("resuming sync run with broken invocation chain")
	e.logb.Add(ctx, domain.LogWarning, "", "resuming after missed heartbeat")
	e.logb.Flush(ctx)
	return e.disp.Enqueue(0)
}

func (e *Engine) stepPage(ctx context.Context, run *domain.SyncRun) error {
	deadline := e.now().Add(e.cfg.Budget)

	hotels, err := e.api.FetchPage(ctx, run.Offset, e.cfg.PageSize)
	if err != nil {
		return fmt.Errorf("fetch page at offset %d: %w", run.Offset, err)
	}

	if len(hotels) == 0 {
		if run.Type == domain.SyncFull {
			run.Phase = domain.PhaseFinalize
			run.HeartbeatAt = e.now().UTC()
			if err := e.state.SaveRun(ctx, *run); err != nil {
				return err
			}
			e.logb.Add(ctx, domain.LogInfo, "", "all pages processed, reconciling withdrawn hotels")
			if e.now().Add(e.cfg.Budget / 2).Before(deadline) {
				return e.finalize(ctx, run)
			}
			return e.disp.Enqueue(e.cfg.StepDelay)
		}
		e.logb.Add(ctx, domain.LogInfo, "", "all pages processed")
		return e.complete(ctx, run)
	}

	for _, raw := range hotels {
		res, changes, err := e.upsertOne(ctx, raw)
		run.Counters.Processed++
		if err != nil {
			// one bad record must not abort the batch
			run.Counters.Errors++
			observability.ObserveRecord("error")
			e.logb.Add(ctx, domain.LogError, raw.ID.String(), err.Error())
			continue
		}
		switch res {
		case domain.ResultCreated:
			run.Counters.Created++
			observability.ObserveRecord("created")
			e.logb.Add(ctx, domain.LogSuccess, raw.ID.String(), "created "+strings.TrimSpace(raw.Name))
		case domain.ResultUpdated:
			run.Counters.Updated++
			observability.ObserveRecord("updated")
			for _, c := range changes {
				e.logb.AddChange(ctx, raw.ID.String(), c)
			}
		default:
			run.Counters.Unchanged++
			observability.ObserveRecord("unchanged")
		}
	}

	run.Offset += e.cfg.PageSize
	run.HeartbeatAt = e.now().UTC()
	if err := e.state.SaveRun(ctx, *run); err != nil {
		return err
	}
	return e.disp.Enqueue(e.cfg.StepDelay)
}

func (e *Engine) upsertOne(ctx context.Context, raw domain.RawHotel) (domain.UpsertResult, []domain.FieldChange, error) {
	rec := Normalize(raw)
	if rec.ExternalID == "" {
		return domain.ResultUnchanged, nil, fmt.Errorf("record without external id")
	}

	existing, err := e.repo.Find(ctx, rec.ExternalID, rec.ReferenceCode)
	if err != nil {
		return domain.ResultUnchanged, nil, err
	}
	if existing == nil {
		if err := e.repo.Insert(ctx, rec); err != nil {
			return domain.ResultUnchanged, nil, err
		}
		return domain.ResultCreated, nil, nil
	}

	if existing.ExternalID != rec.ExternalID {
		// matched via reference code while the stored id drifted; repair in
		// place (historic numeric/string id mismatches)
		if err := e.repo.RepairExternalID(ctx, existing.RowID, rec.ExternalID); err != nil {
			return domain.ResultUnchanged, nil, err
		}
		e.logb.Add(ctx, domain.LogWarning, rec.ExternalID, fmt.Sprintf(
			"repaired external id %s -> %s (matched by reference code %s)",
			existing.ExternalID, rec.ExternalID, rec.ReferenceCode))
		existing.ExternalID = rec.ExternalID
	}

	changes := DiffRecords(*existing, rec)
	if len(changes) == 0 {
		if existing.Status == domain.StatusWithdrawn {
			if err := e.repo.UpdateFields(ctx, existing.RowID, nil); err != nil {
				return domain.ResultUnchanged, nil, err
			}
			e.logb.Add(ctx, domain.LogUpdate, rec.ExternalID, "reactivated")
			return domain.ResultUpdated, nil, nil
		}
		return domain.ResultUnchanged, nil, nil
	}

	if err := e.repo.UpdateFields(ctx, existing.RowID, ChangedColumns(changes, rec)); err != nil {
		return domain.ResultUnchanged, nil, err
	}
	return domain.ResultUpdated, changes, nil
}

// finalize re-walks the entire remote id space (slim id-only pages) and
// withdraws every local active record missing from it. The local set is
// computed fresh here, not at run start: phase1 creates records mid-run.
func (e *Engine) finalize(ctx context.Context, run *domain.SyncRun) error {
	remote := make(map[string]struct{})
	for skip := 0; ; skip += e.cfg.PageSize {
		ids, err := e.api.FetchIDPage(ctx, skip, e.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("fetch id page at offset %d: %w", skip, err)
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			remote[id] = struct{}{}
		}
		if len(ids) < e.cfg.PageSize {
			break
		}
	}

	if len(remote) == 0 {
		// an empty enumeration would withdraw every record; treat it as a
		// failed walk rather than genuine drift
		e.logb.Add(ctx, domain.LogWarning, "", "remote id enumeration empty, skipping withdrawal pass")
		return e.complete(ctx, run)
	}

	ids := make([]string, 0, len(remote))
	for id := range remote {
		ids = append(ids, id)
	}
	if err := e.state.SaveRemoteIDs(ctx, ids); err != nil {
		log.Warn().Err(err).Msg("persist remote id set failed") // audit trail only
	}

	local, err := e.repo.ListActiveIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active ids: %w", err)
	}
	for _, id := range local {
		if _, ok := remote[id]; ok {
			continue
		}
		if err := e.repo.MarkWithdrawn(ctx, id); err != nil {
			run.Counters.Errors++
			observability.ObserveRecord("error")
			e.logb.Add(ctx, domain.LogError, id, err.Error())
			continue
		}
		run.Counters.Drafted++
		observability.ObserveRecord("withdrawn")
		e.logb.Add(ctx, domain.LogDraft, id, "withdrawn: absent from remote enumeration")
	}

	return e.complete(ctx, run)
}

func (e *Engine) complete(ctx context.Context, run *domain.SyncRun) error {
	run.Status = domain.RunComplete
	run.Phase = domain.PhaseDone
	fin := e.now().UTC()
	run.FinishedAt = &fin
	if err := e.state.SaveRun(ctx, *run); err != nil {
		return err
	}
	c := run.Counters
	e.logb.Add(ctx, domain.LogSuccess, "", fmt.Sprintf(
		"sync complete: %d processed, %d created, %d updated, %d withdrawn, %d errors",
		c.Processed, c.Created, c.Updated, c.Drafted, c.Errors))
	e.logb.Flush(ctx)
	observability.ObserveRun(string(domain.RunComplete))
	if err := e.state.ArchiveRun(ctx, *run, e.cfg.LogExcerpt); err != nil {
		return err
	}
	return e.state.ClearRun(ctx)
}
