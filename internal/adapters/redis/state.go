package redisad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"seminargo/internal/adapters/observability"
	"seminargo/internal/domain"
)

const (
	keyRun       = "sync:run"
	keyLog       = "sync:log"
	keyHistory   = "sync:history"
	keyRemoteIDs = "sync:remote_ids"
)

// StateStore keeps the sync engine's persisted state: the current run
// document, the capped run log, the bounded run history and the last known
// remote id set.
type StateStore struct {
	c            *redis.Client
	logLimit     int
	historyLimit int
}

func New(addr, pass string, db, logLimit, historyLimit int) *StateStore {
	if logLimit <= 0 {
		logLimit = 500
	}
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &StateStore{
		c:            redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		logLimit:     logLimit,
		historyLimit: historyLimit,
	}
}

func (s *StateStore) LoadRun(ctx context.Context) (*domain.SyncRun, error) {
	v, err := s.c.Get(ctx, keyRun).Bytes()
	if err == redis.Nil {
		observability.ObserveState("load_run", nil)
		return nil, nil
	}
	observability.ObserveState("load_run", err)
	if err != nil {
		return nil, err
	}
	var run domain.SyncRun
	if err := json.Unmarshal(v, &run); err != nil {
		return nil, fmt.Errorf("decode run document: %w", err)
	}
	return &run, nil
}

// BeginRun installs the run document only when none exists (SETNX), closing
// the race between two concurrent start triggers.
func (s *StateStore) BeginRun(ctx context.Context, run domain.SyncRun) (bool, error) {
	b, err := json.Marshal(run)
	if err != nil {
		return false, err
	}
	ok, err := s.c.SetNX(ctx, keyRun, b, 0).Result()
	observability.ObserveState("begin_run", err)
	return ok, err
}

// SaveRun writes the run document and reads it back to confirm durability.
// Two failed verifications surface as ErrProgressNotDurable; the caller must
// not schedule a successor invocation on that error.
func (s *StateStore) SaveRun(ctx context.Context, run domain.SyncRun) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.c.Set(ctx, keyRun, b, 0).Err(); err != nil {
			observability.ObserveState("save_run", err)
			continue
		}
		back, err := s.c.Get(ctx, keyRun).Bytes()
		if err == nil && bytes.Equal(back, b) {
			observability.ObserveState("save_run", nil)
			return nil
		}
		observability.ObserveState("save_run", err)
	}
	return domain.ErrProgressNotDurable
}

func (s *StateStore) ClearRun(ctx context.Context) error {
	err := s.c.Del(ctx, keyRun).Err()
	observability.ObserveState("clear_run", err)
	return err
}

func (s *StateStore) AppendLog(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	vals := make([]any, 0, len(entries))
	for _, e := range entries {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}
	pipe := s.c.TxPipeline()
	pipe.RPush(ctx, keyLog, vals...)
	pipe.LTrim(ctx, keyLog, int64(-s.logLimit), -1)
	_, err := pipe.Exec(ctx)
	observability.ObserveState("append_log", err)
	return err
}

// RecentLog returns up to n entries, oldest first.
func (s *StateStore) RecentLog(ctx context.Context, n int) ([]domain.LogEntry, error) {
	if n <= 0 {
		n = s.logLimit
	}
	raw, err := s.c.LRange(ctx, keyLog, int64(-n), -1).Result()
	observability.ObserveState("recent_log", err)
	if err != nil {
		return nil, err
	}
	out := make([]domain.LogEntry, 0, len(raw))
	for _, r := range raw {
		var e domain.LogEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			continue // skip corrupt entries rather than failing the read
		}
		out = append(out, e)
	}
	return out, nil
}

// ArchiveRun snapshots the terminal run plus a log excerpt onto the bounded
// history list and clears the live log.
func (s *StateStore) ArchiveRun(ctx context.Context, run domain.SyncRun, logExcerpt int) error {
	excerpt, err := s.RecentLog(ctx, logExcerpt)
	if err != nil {
		return err
	}
	b, err := json.Marshal(domain.RunArchive{Run: run, Log: excerpt})
	if err != nil {
		return err
	}
	pipe := s.c.TxPipeline()
	pipe.LPush(ctx, keyHistory, b)
	pipe.LTrim(ctx, keyHistory, 0, int64(s.historyLimit-1))
	pipe.Del(ctx, keyLog)
	_, err = pipe.Exec(ctx)
	observability.ObserveState("archive_run", err)
	return err
}

// History returns archived runs, most recent first.
func (s *StateStore) History(ctx context.Context) ([]domain.RunArchive, error) {
	raw, err := s.c.LRange(ctx, keyHistory, 0, -1).Result()
	observability.ObserveState("history", err)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RunArchive, 0, len(raw))
	for _, r := range raw {
		var a domain.RunArchive
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveRemoteIDs replaces the last-known remote id set (audit trail for the
// finalize phase).
func (s *StateStore) SaveRemoteIDs(ctx context.Context, ids []string) error {
	pipe := s.c.TxPipeline()
	pipe.Del(ctx, keyRemoteIDs)
	if len(ids) > 0 {
		vals := make([]any, len(ids))
		for i, id := range ids {
			vals[i] = id
		}
		pipe.SAdd(ctx, keyRemoteIDs, vals...)
	}
	_, err := pipe.Exec(ctx)
	observability.ObserveState("save_remote_ids", err)
	return err
}
