// Package activity syncs cardio activities from Strava.
//
// The OAuth credential is stored through the same storage backend as the
// application state. Failures are returned as *SyncError and never touch
// application state; callers merge the returned entries themselves.
package activity

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/claude/fitlog/internal/models"
	"github.com/claude/fitlog/internal/storage"
)

const (
	defaultAuthURL  = "https://www.strava.com/oauth/authorize"
	defaultTokenURL = "https://www.strava.com/oauth/token"
	defaultAPIURL   = "https://www.strava.com/api/v3"

	// refreshWindow is how close to expiry a token is refreshed.
	refreshWindow = 5 * time.Minute
	pageSize      = 10
	maxEntries    = 5
)

// ErrNotLinked is returned when no credential has been stored yet.
var ErrNotLinked = errors.New("activity account not linked")

// SyncError reports a failed sync step with a human-readable message.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("activity sync: %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Config holds the OAuth application credentials and endpoints.
// Empty URLs default to Strava's public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
}

// Client fetches recent activities with a persisted, auto-refreshed token.
type Client struct {
	oauth      *oauth2.Config
	apiURL     string
	tokens     *TokenStore
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client. Tokens are persisted in backend under TokenKey.
func NewClient(cfg Config, backend storage.Backend, log *slog.Logger) *Client {
	authURL := cmp.Or(cfg.AuthURL, defaultAuthURL)
	tokenURL := cmp.Or(cfg.TokenURL, defaultTokenURL)
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read,activity:read_all"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiURL:     strings.TrimRight(cmp.Or(cfg.APIURL, defaultAPIURL), "/"),
		tokens:     NewTokenStore(backend),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// AuthCodeURL returns the URL the user visits to authorize access.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "auto"))
}

// Exchange trades an authorization code for a token and persists it.
func (c *Client) Exchange(ctx context.Context, code string) error {
	tok, err := c.oauth.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return &SyncError{Op: "exchange code", Err: err}
	}
	if err := c.tokens.Save(ctx, tok); err != nil {
		return &SyncError{Op: "store token", Err: err}
	}
	c.log.Info("activity account linked")
	return nil
}

// Linked reports whether a credential is stored.
func (c *Client) Linked(ctx context.Context) bool {
	tok, err := c.tokens.Load(ctx)
	return err == nil && tok != nil
}

// Latest returns up to five recent activities mapped to cardio entries
// tagged as externally synced.
func (c *Client) Latest(ctx context.Context) ([]models.CardioEntry, error) {
	tok, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.apiURL + "/athlete/activities?" + url.Values{"per_page": {strconv.Itoa(pageSize)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &SyncError{Op: "create request", Err: err}
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SyncError{Op: "fetch activities", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SyncError{Op: "read activities", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SyncError{Op: "fetch activities", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var acts []stravaActivity
	if err := json.Unmarshal(body, &acts); err != nil {
		return nil, &SyncError{Op: "decode activities", Err: err}
	}

	entries := mapActivities(acts)
	c.log.Debug("fetched activities", "received", len(acts), "mapped", len(entries))
	return entries, nil
}

// validToken loads the stored token, refreshing and re-persisting it when it
// expires within refreshWindow.
func (c *Client) validToken(ctx context.Context) (*oauth2.Token, error) {
	stored, err := c.tokens.Load(ctx)
	if err != nil {
		return nil, &SyncError{Op: "load token", Err: err}
	}
	if stored == nil {
		return nil, &SyncError{Op: "load token", Err: ErrNotLinked}
	}

	refresher := c.oauth.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: stored.RefreshToken})
	tok, err := oauth2.ReuseTokenSourceWithExpiry(stored, refresher, refreshWindow).Token()
	if err != nil {
		return nil, &SyncError{Op: "refresh token", Err: err}
	}

	if tok.AccessToken != stored.AccessToken {
		if tok.RefreshToken == "" {
			tok.RefreshToken = stored.RefreshToken
		}
		if err := c.tokens.Save(ctx, tok); err != nil {
			c.log.Warn("failed to persist refreshed token", "error", err)
		} else {
			c.log.Info("refreshed activity token", "expires", tok.Expiry)
		}
	}
	return tok, nil
}

func (c *Client) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// stravaActivity is the subset of the activity summary we read.
type stravaActivity struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Distance     float64   `json:"distance"`      // meters
	MovingTime   int       `json:"moving_time"`   // seconds
	AverageSpeed float64   `json:"average_speed"` // m/s
	StartDate    time.Time `json:"start_date"`
}

// mapActivities converts activity summaries to cardio entries. Unsupported
// types are skipped and at most five entries are returned.
func mapActivities(acts []stravaActivity) []models.CardioEntry {
	out := []models.CardioEntry{}
	for _, a := range acts {
		kind, ok := cardioType(a.Type)
		if !ok {
			continue
		}
		speed := round(a.AverageSpeed*3.6, 1)
		out = append(out, models.CardioEntry{
			ID:       "strava-" + strconv.FormatInt(a.ID, 10),
			Type:     kind,
			Distance: round(a.Distance/1000, 2),
			Duration: int(math.Round(float64(a.MovingTime) / 60)),
			Date:     a.StartDate,
			Source:   models.SourceExternalSync,
			AvgSpeed: &speed,
		})
		if len(out) == maxEntries {
			break
		}
	}
	return out
}

func cardioType(stravaType string) (models.CardioType, bool) {
	switch stravaType {
	case "Run", "TrailRun", "VirtualRun":
		return models.CardioRun, true
	case "Ride", "VirtualRide", "EBikeRide":
		return models.CardioCycle, true
	case "Walk", "Hike":
		return models.CardioWalk, true
	}
	return "", false
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

