package redisad_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "seminargo/internal/adapters/redis"
	"seminargo/internal/domain"
)

func newStore(t *testing.T) (*redisad.StateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redisad.New(mr.Addr(), "", 0, 5, 3), mr
}

func TestBeginRun_CAS(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	run := domain.NewSyncRun(domain.SyncFull, time.Now())
	ok, err := st.BeginRun(ctx, run)
	if err != nil || !ok {
		t.Fatalf("first begin: ok=%v err=%v", ok, err)
	}

	// second begin must lose the race
	ok, err = st.BeginRun(ctx, domain.NewSyncRun(domain.SyncIncremental, time.Now()))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatal("expected second BeginRun to be rejected")
	}

	got, err := st.LoadRun(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got == nil || got.Type != domain.SyncFull {
		t.Fatalf("unexpected run: %+v", got)
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	run := domain.NewSyncRun(domain.SyncFull, time.Now())
	if ok, _ := st.BeginRun(ctx, run); !ok {
		t.Fatal("begin failed")
	}

	run.Offset = 400
	run.Counters.Created = 12
	run.Phase = domain.PhaseFinalize
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := st.LoadRun(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Offset != 400 || got.Counters.Created != 12 || got.Phase != domain.PhaseFinalize {
		t.Fatalf("unexpected run: %+v", got)
	}

	if err := st.ClearRun(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := st.LoadRun(ctx); got != nil {
		t.Fatalf("expected nil run after clear, got %+v", got)
	}
}

func TestAppendLog_Trimmed(t *testing.T) {
	st, _ := newStore(t) // log limit 5
	ctx := context.Background()

	var entries []domain.LogEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, domain.LogEntry{
			Time: time.Now(), Level: domain.LogInfo, Message: fmt.Sprintf("entry %d", i),
		})
	}
	if err := st.AppendLog(ctx, entries); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := st.RecentLog(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected trim to 5, got %d", len(got))
	}
	// the oldest surviving entry is #3
	if got[0].Message != "entry 3" || got[4].Message != "entry 7" {
		t.Fatalf("unexpected window: %q .. %q", got[0].Message, got[4].Message)
	}
}

func TestArchiveRun_BoundedHistory(t *testing.T) {
	st, _ := newStore(t) // history limit 3
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		run := domain.NewSyncRun(domain.SyncFull, time.Now())
		run.Status = domain.RunComplete
		run.Counters.Created = i
		_ = st.AppendLog(ctx, []domain.LogEntry{{Time: time.Now(), Level: domain.LogSuccess, Message: "done"}})
		if err := st.ArchiveRun(ctx, run, 10); err != nil {
			t.Fatalf("archive %d: %v", i, err)
		}
	}

	hist, err := st.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected bounded history of 3, got %d", len(hist))
	}
	// most recent first
	if hist[0].Run.Counters.Created != 3 {
		t.Fatalf("unexpected head: %+v", hist[0].Run)
	}
	if len(hist[0].Log) != 1 || hist[0].Log[0].Message != "done" {
		t.Fatalf("expected log excerpt, got %+v", hist[0].Log)
	}

	// live log cleared by archival
	live, _ := st.RecentLog(ctx, 0)
	if len(live) != 0 {
		t.Fatalf("expected cleared log, got %d entries", len(live))
	}
}

func TestSaveRemoteIDs(t *testing.T) {
	st, mr := newStore(t)
	ctx := context.Background()

	if err := st.SaveRemoteIDs(ctx, []string{"1", "2", "3"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	members, err := mr.SMembers("sync:remote_ids")
	if err != nil || len(members) != 3 {
		t.Fatalf("members=%v err=%v", members, err)
	}

	// replace, not merge
	if err := st.SaveRemoteIDs(ctx, []string{"9"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	members, _ = mr.SMembers("sync:remote_ids")
	if len(members) != 1 || members[0] != "9" {
		t.Fatalf("expected replacement, got %v", members)
	}
}
