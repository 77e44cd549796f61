//go:build integration || !unit

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	server "seminargo/internal/adapters/http_server"
	"seminargo/internal/adapters/hotelapi"
	redisad "seminargo/internal/adapters/redis"
	"seminargo/internal/adapters/schedule"
	"seminargo/internal/app"
	"seminargo/internal/domain"
)

// ---------- in-memory repository ----------

type memRepo struct {
	mu     sync.Mutex
	rows   []domain.HotelRecord
	nextID int64
}

func (r *memRepo) Find(_ context.Context, extID, refCode string) (*domain.HotelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].Status != domain.StatusTrashed && r.rows[i].ExternalID == extID {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	for i := range r.rows {
		if r.rows[i].Status != domain.StatusTrashed && refCode != "" && r.rows[i].ReferenceCode == refCode {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) Insert(_ context.Context, rec domain.HotelRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rec.RowID = r.nextID
	rec.UpdatedAt = time.Now()
	r.rows = append(r.rows, rec)
	return nil
}

func (r *memRepo) UpdateFields(_ context.Context, rowID int64, cols map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].RowID == rowID {
			if v, ok := cols["rating"].(float64); ok {
				r.rows[i].Rating = v
			}
			r.rows[i].Status = domain.StatusActive
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) RepairExternalID(_ context.Context, rowID int64, extID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].RowID == rowID {
			r.rows[i].ExternalID = extID
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) MarkWithdrawn(_ context.Context, extID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ExternalID == extID && r.rows[i].Status == domain.StatusActive {
			r.rows[i].Status = domain.StatusWithdrawn
		}
	}
	return nil
}

func (r *memRepo) ListActiveIDs(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, row := range r.rows {
		if row.Status == domain.StatusActive {
			out = append(out, row.ExternalID)
		}
	}
	return out, nil
}

func (r *memRepo) DuplicateExternalIDs(context.Context) ([]string, error)    { return nil, nil }
func (r *memRepo) DuplicateReferenceCodes(context.Context) ([]string, error) { return nil, nil }

func (r *memRepo) ListByExternalID(context.Context, string) ([]domain.HotelRecord, error) {
	return nil, nil
}

func (r *memRepo) ListByReferenceCode(context.Context, string) ([]domain.HotelRecord, error) {
	return nil, nil
}

func (r *memRepo) Trash(context.Context, int64) error { return nil }

func (r *memRepo) GetHotel(_ context.Context, extID string) (domain.HotelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ExternalID == extID && row.Status != domain.StatusTrashed {
			return row, nil
		}
	}
	return domain.HotelRecord{}, domain.ErrNotFound
}

func (r *memRepo) ListHotels(_ context.Context, limit int) ([]domain.HotelRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.HotelRecord(nil), r.rows...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---------- GraphQL upstream stub ----------

func upstreamStub(t *testing.T) *httptest.Server {
	t.Helper()
	page := `[
	  {"id": 7, "refCode": "SEM-007", "name": "Hotel Sieben", "rating": 7.7},
	  {"id": 8, "refCode": "SEM-008", "name": "Hotel Acht", "rating": 8.8}
	]`
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode upstream request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		skip, _ := req.Variables["skip"].(float64)

		list := "[]"
		if skip == 0 {
			if strings.Contains(req.Query, "refCode") {
				list = page
			} else {
				list = `[{"id": 7}, {"id": 8}]`
			}
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"hotelList":%s}}`, list)
	}))
}

// ---------- the test ----------

func TestHTTP_EndToEnd_FullSync(t *testing.T) {
	upstream := upstreamStub(t)
	defer upstream.Close()

	mr := miniredis.RunT(t)
	state := redisad.New(mr.Addr(), "", 0, 100, 5)
	repo := &memRepo{}

	client, err := hotelapi.New(upstream.URL, "test-token", 50, 10*time.Second)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	engine := app.NewEngine(client, repo, state, app.NewRunLog(state, 5), app.EngineConfig{
		PageSize:  2,
		Budget:    10 * time.Second,
		StepDelay: 10 * time.Millisecond,
	})

	sched, err := schedule.New()
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	engine.SetDispatcher(sched.Dispatcher(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Step(ctx); err != nil {
			t.Errorf("step: %v", err)
		}
	}))
	sched.Start()
	t.Cleanup(func() { _ = sched.Stop() })

	srv := server.New(15 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Engine: engine,
		Q:      app.NewQueryService(repo, state),
		Dedupe: app.NewDeduper(repo),
	})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	// kick off a full sync over HTTP
	res, err := http.Post(ts.URL+"/v1/sync/start?type=full", "", nil)
	if err != nil {
		t.Fatalf("POST start: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("start status %d", res.StatusCode)
	}

	// poll progress until the run archives itself
	type progressView struct {
		Run  *domain.SyncRun    `json:"run"`
		Last *domain.RunArchive `json:"last"`
	}
	var view progressView
	deadline := time.Now().Add(10 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatalf("sync did not finish; last view: %+v", view)
		}
		time.Sleep(50 * time.Millisecond)

		res, err := http.Get(ts.URL + "/v1/sync/progress")
		if err != nil {
			t.Fatalf("GET progress: %v", err)
		}
		err = json.NewDecoder(res.Body).Decode(&view)
		res.Body.Close()
		if err != nil {
			t.Fatalf("decode progress: %v", err)
		}
		if view.Run == nil && view.Last != nil {
			break
		}
	}

	run := view.Last.Run
	if run.Status != domain.RunComplete || run.Type != domain.SyncFull {
		t.Fatalf("unexpected terminal run: %+v", run)
	}
	if run.Counters.Created != 2 || run.Counters.Errors != 0 {
		t.Fatalf("unexpected counters: %+v", run.Counters)
	}

	// synced record is served back
	res, err = http.Get(ts.URL + "/v1/hotels/7")
	if err != nil {
		t.Fatalf("GET hotel: %v", err)
	}
	var rec struct {
		ExternalID string
		Title      string
	}
	err = json.NewDecoder(res.Body).Decode(&rec)
	res.Body.Close()
	if err != nil || rec.ExternalID != "7" || rec.Title != "Hotel Sieben" {
		t.Fatalf("unexpected hotel: %+v err=%v", rec, err)
	}

	// nothing left to cancel once the run archived
	res, err = http.Post(ts.URL+"/v1/sync/cancel", "", nil)
	if err != nil {
		t.Fatalf("POST cancel: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cancel status %d, want 404", res.StatusCode)
	}
}
