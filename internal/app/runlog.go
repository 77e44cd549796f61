package app

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"seminargo/internal/domain"
)

// RunLog accumulates operation log entries in memory and flushes them to the
// state store in fixed-size batches. Flush failures are logged, never fatal:
// losing log entries must not abort a sync batch.
type RunLog struct {
	store     domain.SyncStateStore
	buf       []domain.LogEntry
	flushSize int
	now       func() time.Time
}

func NewRunLog(store domain.SyncStateStore, flushSize int) *RunLog {
	if flushSize <= 0 {
		flushSize = 20
	}
	return &RunLog{store: store, flushSize: flushSize, now: time.Now}
}

func (l *RunLog) Add(ctx context.Context, level domain.LogLevel, subject, msg string) {
	l.push(ctx, domain.LogEntry{Time: l.now().UTC(), Level: level, Subject: subject, Message: msg})
}

// AddChange records one field-level update with before/after values. Long
// values (JSON blobs) are clipped so log storage stays bounded.
func (l *RunLog) AddChange(ctx context.Context, subject string, c domain.FieldChange) {
	l.push(ctx, domain.LogEntry{
		Time:    l.now().UTC(),
		Level:   domain.LogUpdate,
		Subject: subject,
		Message: "field changed",
		Field:   c.Field,
		Old:     clip(c.Old, 500),
		New:     clip(c.New, 500),
	})
}

func (l *RunLog) push(ctx context.Context, e domain.LogEntry) {
	l.buf = append(l.buf, e)
	if len(l.buf) >= l.flushSize {
		l.Flush(ctx)
	}
}

func (l *RunLog) Flush(ctx context.Context) {
	if len(l.buf) == 0 {
		return
	}
	if err := l.store.AppendLog(ctx, l.buf); err != nil {
		log.Error().Err(err).Int("entries", len(l.buf)).Msg("flush run log failed")
		return
	}
	l.buf = l.buf[:0]
}

// clip truncates s to at most n bytes, backing up so the cut never lands
// inside a multi-byte rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
