package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/fitlog/internal/aggregate"
	"github.com/claude/fitlog/internal/models"
)

var errNotFound = errors.New("not found")

// HTTPClient implements DataSource by calling the fitlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, data)
	}
	return data, nil
}

// getJSON decodes a GET response into a new T. A 404 yields nil, nil.
func getJSON[T any](ctx context.Context, c *HTTPClient, path string, params url.Values) (*T, error) {
	data, err := c.do(ctx, http.MethodGet, path, params, nil)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return &v, nil
}

func postJSON[T any](ctx context.Context, c *HTTPClient, path string, body any) (*T, error) {
	data, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return &v, nil
}

// deref returns the list behind p, or an empty one.
func deref[T any](p *[]T) []T {
	if p == nil || *p == nil {
		return []T{}
	}
	return *p
}

func (c *HTTPClient) Dashboard(ctx context.Context) (*aggregate.DashboardView, error) {
	return getJSON[aggregate.DashboardView](ctx, c, "/api/v1/dashboard", nil)
}

func (c *HTTPClient) ActiveSession(ctx context.Context) (*models.WorkoutSession, error) {
	resp, err := getJSON[struct {
		Session models.WorkoutSession `json:"session"`
	}](ctx, c, "/api/v1/sessions/active", nil)
	if err != nil || resp == nil {
		return nil, err
	}
	return &resp.Session, nil
}

func (c *HTTPClient) CompletedWorkouts(ctx context.Context) ([]aggregate.SessionSummary, error) {
	out, err := getJSON[[]aggregate.SessionSummary](ctx, c, "/api/v1/workouts/completed", nil)
	return deref(out), err
}

func (c *HTTPClient) PreviousSet(ctx context.Context, exercise string) (*models.ExerciseSet, error) {
	return getJSON[models.ExerciseSet](ctx, c, "/api/v1/exercises/previous", url.Values{"name": {exercise}})
}

func (c *HTTPClient) TrainingSummary(ctx context.Context, start, end time.Time, bucket aggregate.Bucket) ([]aggregate.TrainingSummaryPeriod, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	params.Set("bucket", string(bucket))
	out, err := getJSON[[]aggregate.TrainingSummaryPeriod](ctx, c, "/api/v1/training/summary", params)
	return deref(out), err
}

func (c *HTTPClient) ExerciseStats(ctx context.Context) ([]aggregate.ExerciseSummary, error) {
	out, err := getJSON[[]aggregate.ExerciseSummary](ctx, c, "/api/v1/exercises/stats", nil)
	return deref(out), err
}

func (c *HTTPClient) Progression(ctx context.Context, exercise string) ([]aggregate.ExerciseProgression, error) {
	out, err := getJSON[[]aggregate.ExerciseProgression](ctx, c, "/api/v1/exercises/progression", url.Values{"name": {exercise}})
	return deref(out), err
}

func (c *HTTPClient) MealsToday(ctx context.Context) (*aggregate.DayMeals, error) {
	return getJSON[aggregate.DayMeals](ctx, c, "/api/v1/meals/today", nil)
}

func (c *HTTPClient) LatestHealth(ctx context.Context) (*aggregate.HealthView, error) {
	return getJSON[aggregate.HealthView](ctx, c, "/api/v1/health/latest", nil)
}

func (c *HTTPClient) LogMeal(ctx context.Context, in MealInput) (*models.MealEntry, error) {
	return postJSON[models.MealEntry](ctx, c, "/api/v1/meals", in)
}

func (c *HTTPClient) LogCardio(ctx context.Context, in CardioInput) (*models.CardioEntry, error) {
	return postJSON[models.CardioEntry](ctx, c, "/api/v1/cardio", in)
}
