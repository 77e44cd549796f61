package hotelapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"seminargo/internal/adapters/hotelapi"
	"seminargo/internal/domain"
)

func page(hotels ...map[string]any) map[string]any {
	return map[string]any{"data": map[string]any{"hotelList": hotels}}
}

func TestFetchPage_RetriesThenSuccess(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1, 2:
			// two transient failures
			w.WriteHeader(500)
		default:
			var req struct {
				Variables map[string]any `json:"variables"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Variables["skip"].(float64) != 0 || req.Variables["limit"].(float64) != 200 {
				t.Errorf("unexpected variables: %+v", req.Variables)
			}
			_ = json.NewEncoder(w).Encode(page(
				map[string]any{"id": 7, "name": "Hotel Alpenblick", "rating": 8.4},
			))
		}
	}))
	defer ts.Close()

	cl, err := hotelapi.New(ts.URL, "test-token", 100, 50*time.Second)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := cl.FetchPage(ctx, 0, 200)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 1 || got[0].ID.String() != "7" || got[0].Name != "Hotel Alpenblick" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got[0].Rating == nil || *got[0].Rating != 8.4 {
		t.Fatalf("rating not decoded: %+v", got[0].Rating)
	}
	if atomic.LoadInt32(&hits) < 3 {
		t.Fatalf("expected at least 3 calls due to retries, got %d", hits)
	}
}

func TestFetchPage_GraphQLErrorPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "field hotelList is unavailable"}},
		})
	}))
	defer ts.Close()

	cl, _ := hotelapi.New(ts.URL, "", 100, 50*time.Second)
	_, err := cl.FetchPage(context.Background(), 0, 200)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "field hotelList is unavailable" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestFetchIDPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(page(
			map[string]any{"id": 1}, map[string]any{"id": "2"}, map[string]any{"id": 3},
		))
	}))
	defer ts.Close()

	cl, _ := hotelapi.New(ts.URL, "", 100, 50*time.Second)
	ids, err := cl.FetchIDPage(context.Background(), 0, 500)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// numeric and string ids both normalize to strings
	want := []string{"1", "2", "3"}
	if len(ids) != len(want) {
		t.Fatalf("unexpected ids: %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("id %d: got %q want %q", i, ids[i], want[i])
		}
	}
}

func TestFetchPage_BadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid token"))
	}))
	defer ts.Close()

	cl, _ := hotelapi.New(ts.URL, "bad", 100, 50*time.Second)
	_, err := cl.FetchPage(context.Background(), 0, 200)
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", apiErr.Status)
	}
}
