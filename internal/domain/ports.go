package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrRunActive means a sync run is already in progress and within its
	// stall threshold.
	ErrRunActive = errors.New("sync run already active")

	// ErrProgressNotDurable means the run document could not be written and
	// verified; the current invocation must not schedule a successor.
	ErrProgressNotDurable = errors.New("progress write could not be verified")
)

// APIError is a transport- or GraphQL-level failure fetching a page. The
// invocation is retried after a delay; progress is never advanced past it.
type APIError struct {
	Message string
	Status  int // HTTP status, 0 for transport/GraphQL payload errors
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("hotel api: status %d: %s", e.Status, e.Message)
	}
	return "hotel api: " + e.Message
}

type HotelAPI interface {
	// FetchPage returns one page of full hotel records.
	FetchPage(ctx context.Context, skip, limit int) ([]RawHotel, error)
	// FetchIDPage returns one page of ids only, for the finalize re-walk.
	FetchIDPage(ctx context.Context, skip, limit int) ([]string, error)
}

type HotelRepository interface {
	// Find matches by external id OR reference code; nil when absent.
	Find(ctx context.Context, externalID, referenceCode string) (*HotelRecord, error)
	Insert(ctx context.Context, rec HotelRecord) error
	// UpdateFields writes only the given columns and forces status back to
	// active.
	UpdateFields(ctx context.Context, rowID int64, cols map[string]any) error
	RepairExternalID(ctx context.Context, rowID int64, externalID string) error
	MarkWithdrawn(ctx context.Context, externalID string) error
	ListActiveIDs(ctx context.Context) ([]string, error)

	DuplicateExternalIDs(ctx context.Context) ([]string, error)
	DuplicateReferenceCodes(ctx context.Context) ([]string, error)
	ListByExternalID(ctx context.Context, externalID string) ([]HotelRecord, error)
	ListByReferenceCode(ctx context.Context, referenceCode string) ([]HotelRecord, error)
	Trash(ctx context.Context, rowID int64) error

	GetHotel(ctx context.Context, externalID string) (HotelRecord, error)
	ListHotels(ctx context.Context, limit int) ([]HotelRecord, error)
}

type SyncStateStore interface {
	// LoadRun returns nil when no run document exists.
	LoadRun(ctx context.Context) (*SyncRun, error)
	// BeginRun atomically installs a new run document; false when another
	// run document already exists.
	BeginRun(ctx context.Context, run SyncRun) (bool, error)
	// SaveRun persists the run document and verifies the write by reading it
	// back; returns ErrProgressNotDurable when verification fails.
	SaveRun(ctx context.Context, run SyncRun) error
	ClearRun(ctx context.Context) error

	AppendLog(ctx context.Context, entries []LogEntry) error
	RecentLog(ctx context.Context, n int) ([]LogEntry, error)
	// ArchiveRun pushes the run plus a log excerpt onto the bounded history
	// and clears the live log.
	ArchiveRun(ctx context.Context, run SyncRun, logExcerpt int) error
	History(ctx context.Context) ([]RunArchive, error)

	SaveRemoteIDs(ctx context.Context, ids []string) error
}

// Dispatcher is the deferred-job facility the engine re-arms itself through.
// Delivery is at-least-once; invocations must stay safely repeatable.
type Dispatcher interface {
	Enqueue(delay time.Duration) error
}
