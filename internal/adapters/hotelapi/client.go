package hotelapi

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"seminargo/internal/adapters/observability"
	"seminargo/internal/domain"
)

// hotelListQuery is the one query shape the engine depends on. The finalize
// phase uses the slim variant so a full id re-walk stays cheap.
const hotelListQuery = `query hotelList($skip: Int!, $limit: Int!) {
  hotelList(skip: $skip, limit: $limit) {
    id refCode name businessName
    address1 address2 address3 address4 zip city country email
    latitude longitude distanceAirport distanceTrainStation
    rating maxCapacity roomsCount
    texts { type language details }
    attributes { code name category }
    meetingRooms {
      name area
      capacityTheater capacityParliament capacityBanquet capacityCocktail
      capacityUForm capacityBlock capacityCircle
      facility { id name }
    }
    cancellationRules { daysBefore percentage terms }
    medias { id name mimeType width height url previewUrl }
  }
}`

const hotelIDQuery = `query hotelList($skip: Int!, $limit: Int!) {
  hotelList(skip: $skip, limit: $limit) { id }
}`

type Client struct {
	endpoint string
	hc       *http.Client
	token    string
	rl       *rate.Limiter
}

// New builds a client whose request timeout is sized strictly below the
// engine's per-invocation budget, so a slow upstream can never outlive the
// invocation that issued the request.
func New(endpoint, token string, rps int, budget time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if rps <= 0 {
		rps = 5
	}
	timeout := budget / 2
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
		token:    token,
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) FetchPage(ctx context.Context, skip, limit int) ([]domain.RawHotel, error) {
	var out struct {
		HotelList []domain.RawHotel `json:"hotelList"`
	}
	if err := c.query(ctx, "hotelList", hotelListQuery, skip, limit, &out); err != nil {
		return nil, err
	}
	return out.HotelList, nil
}

func (c *Client) FetchIDPage(ctx context.Context, skip, limit int) ([]string, error) {
	var out struct {
		HotelList []struct {
			ID json.Number `json:"id"`
		} `json:"hotelList"`
	}
	if err := c.query(ctx, "hotelIds", hotelIDQuery, skip, limit, &out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.HotelList))
	for _, h := range out.HotelList {
		if s := h.ID.String(); s != "" {
			ids = append(ids, s)
		}
	}
	return ids, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

// query POSTs a GraphQL request with client-side rate limiting and retries on
// 429 and transient 5xx, honoring Retry-After when provided. A GraphQL-level
// errors payload is surfaced as APIError without retrying.
func (c *Client) query(ctx context.Context, endpoint, q string, skip, limit int, data any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(gqlRequest{Query: q, Variables: map[string]any{"skip": skip, "limit": limit}})
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "seminargo-sync/1.0")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &domain.APIError{Message: err.Error()}
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			var envelope struct {
				Data   json.RawMessage `json:"data"`
				Errors []gqlError      `json:"errors"`
			}
			err := json.NewDecoder(resp.Body).Decode(&envelope)
			resp.Body.Close()
			if err != nil {
				return &domain.APIError{Message: "decode response: " + err.Error()}
			}
			if len(envelope.Errors) > 0 {
				msgs := make([]string, 0, len(envelope.Errors))
				for _, e := range envelope.Errors {
					msgs = append(msgs, e.Message)
				}
				return &domain.APIError{Message: strings.Join(msgs, "; ")}
			}
			if len(envelope.Data) == 0 {
				return &domain.APIError{Message: "empty data payload"}
			}
			if err := json.Unmarshal(envelope.Data, data); err != nil {
				return &domain.APIError{Message: "decode data: " + err.Error()}
			}
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.APIError{Message: "remote failure", Status: resp.StatusCode}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &domain.APIError{Message: strings.TrimSpace(string(b)), Status: resp.StatusCode}
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
