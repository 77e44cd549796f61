package domain

import "time"

type SyncStatus string

const (
	RunRunning   SyncStatus = "running"
	RunComplete  SyncStatus = "complete"
	RunCancelled SyncStatus = "cancelled"
	RunFailed    SyncStatus = "failed"
)

type SyncPhase string

const (
	PhaseCreateUpdate SyncPhase = "create_update"
	PhaseFinalize     SyncPhase = "finalize"
	PhaseDone         SyncPhase = "done"
)

type SyncType string

const (
	SyncFull        SyncType = "full"
	SyncIncremental SyncType = "incremental"
)

type SyncCounters struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Drafted   int `json:"drafted"`
	Errors    int `json:"errors"`
}

// SyncRun is the persisted state machine instance for one synchronization
// attempt. Exactly one run may be in status "running" at a time.
type SyncRun struct {
	Status      SyncStatus   `json:"status"`
	Phase       SyncPhase    `json:"phase"`
	Type        SyncType     `json:"type"`
	Offset      int          `json:"offset"`
	Counters    SyncCounters `json:"counters"`
	StartedAt   time.Time    `json:"started_at"`
	HeartbeatAt time.Time    `json:"heartbeat_at"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// NewSyncRun is the single constructor used by every trigger surface (HTTP,
// cron, CLI) so all three produce identical initial documents.
func NewSyncRun(t SyncType, now time.Time) SyncRun {
	return SyncRun{
		Status:      RunRunning,
		Phase:       PhaseCreateUpdate,
		Type:        t,
		StartedAt:   now.UTC(),
		HeartbeatAt: now.UTC(),
	}
}

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogUpdate  LogLevel = "update"
	LogError   LogLevel = "error"
	LogDraft   LogLevel = "draft"
	LogWarning LogLevel = "warning"
)

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   LogLevel  `json:"level"`
	Message string    `json:"message"`
	Subject string    `json:"subject,omitempty"` // external id or hotel name
	Field   string    `json:"field,omitempty"`
	Old     string    `json:"old,omitempty"`
	New     string    `json:"new,omitempty"`
}

// RunArchive is one element of the bounded run history: the terminal run
// document plus a capped excerpt of its log.
type RunArchive struct {
	Run SyncRun    `json:"run"`
	Log []LogEntry `json:"log"`
}

type UpsertResult int

const (
	ResultUnchanged UpsertResult = iota
	ResultCreated
	ResultUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case ResultCreated:
		return "created"
	case ResultUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

type FieldChange struct {
	Field string
	Old   string
	New   string
}

type HotelSummary struct {
	RowID         int64     `json:"row_id"`
	ExternalID    string    `json:"external_id"`
	ReferenceCode string    `json:"reference_code"`
	Title         string    `json:"title"`
	Score         int       `json:"score"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type DuplicateGroup struct {
	KeyType string         `json:"key_type"` // external_id | reference_code
	Key     string         `json:"key"`
	Keep    HotelSummary   `json:"keep"`
	Remove  []HotelSummary `json:"remove"`
}

type CleanupReport struct {
	DryRun  bool     `json:"dry_run"`
	Groups  int      `json:"groups"`
	Kept    int      `json:"kept"`
	Trashed int      `json:"trashed"`
	Details []string `json:"details"`
}
