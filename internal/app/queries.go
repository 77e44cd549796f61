package app

import (
	"context"

	"seminargo/internal/domain"
)

// QueryService serves the read-only operator surfaces: current progress with
// a log tail, run history, and synced hotel records.
type QueryService struct {
	repo  domain.HotelRepository
	state domain.SyncStateStore
}

func NewQueryService(repo domain.HotelRepository, state domain.SyncStateStore) *QueryService {
	return &QueryService{repo: repo, state: state}
}

type ProgressView struct {
	Run  *domain.SyncRun    `json:"run"` // nil when no sync is in flight
	Log  []domain.LogEntry  `json:"log"`
	Last *domain.RunArchive `json:"last,omitempty"` // most recent archived run when idle
}

func (s *QueryService) Progress(ctx context.Context, logTail int) (ProgressView, error) {
	run, err := s.state.LoadRun(ctx)
	if err != nil {
		return ProgressView{}, err
	}
	entries, err := s.state.RecentLog(ctx, logTail)
	if err != nil {
		return ProgressView{}, err
	}
	view := ProgressView{Run: run, Log: entries}
	if run == nil {
		hist, err := s.state.History(ctx)
		if err != nil {
			return ProgressView{}, err
		}
		if len(hist) > 0 {
			view.Last = &hist[0]
		}
	}
	return view, nil
}

func (s *QueryService) History(ctx context.Context) ([]domain.RunArchive, error) {
	return s.state.History(ctx)
}

func (s *QueryService) GetHotel(ctx context.Context, externalID string) (domain.HotelRecord, error) {
	return s.repo.GetHotel(ctx, externalID)
}

func (s *QueryService) ListHotels(ctx context.Context, limit int) ([]domain.HotelRecord, error) {
	return s.repo.ListHotels(ctx, limit)
}
