// Package osu is a minimal client for the osu! API v2, covering the two
// lookups the curation workflow needs.
package osu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sync/singleflight"

	"loved-api/internal/models"
)

// ErrNotFound is returned when the API has no such beatmapset or user
var ErrNotFound = errors.New("osu: not found")

// tokenExpiryMargin renews the app token this long before it expires
const tokenExpiryMargin = time.Minute

// Config holds osu! API client configuration
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the osu! API with a client credentials token
type Client struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	tokenGroup  singleflight.Group
	now         func() time.Time
}

// NewClient creates a new osu! API client
func NewClient(cfg Config) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         httpClient,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// appToken returns a cached client credentials token, fetching a new one when
// it is missing or about to expire. Concurrent callers share one fetch.
func (c *Client) appToken(ctx context.Context) (string, error) {
	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := c.tokenGroup.Do("app", func() (any, error) {
		if token, ok := c.cachedToken(); ok {
			return token, nil
		}
		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, true
	}
	return "", false
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {"public"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request token: %w", err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("token response has no access token")
	}

	c.mu.Lock()
	c.token = token.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenExpiryMargin)
	c.mu.Unlock()

	slog.Debug("Fetched osu! app token", "expires_in", token.ExpiresIn)
	return token.AccessToken, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	token, err := c.appToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", "20240529")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to request %s: %w", path, err)
	}
	defer closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		slog.Error("Failed to close response body", "error", err)
	}
}

type beatmapResponse struct {
	ID               int64   `json:"id"`
	BeatmapsetID     int64   `json:"beatmapset_id"`
	ModeInt          int     `json:"mode_int"`
	Version          string  `json:"version"`
	DifficultyRating float64 `json:"difficulty_rating"`
	CS               float64 `json:"cs"`
	BPM              float64 `json:"bpm"`
	Ranked           int     `json:"ranked"`
}

type beatmapsetResponse struct {
	ID            int64             `json:"id"`
	Artist        string            `json:"artist"`
	Title         string            `json:"title"`
	UserID        int64             `json:"user_id"`
	Creator       string            `json:"creator"`
	Ranked        int               `json:"ranked"`
	SubmittedDate time.Time         `json:"submitted_date"`
	Beatmaps      []beatmapResponse `json:"beatmaps"`
}

// Beatmapset fetches a beatmapset with its beatmaps
func (c *Client) Beatmapset(ctx context.Context, id int64) (*models.Beatmapset, error) {
	var resp beatmapsetResponse
	if err := c.get(ctx, "/beatmapsets/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return nil, err
	}

	set := &models.Beatmapset{
		ID:           resp.ID,
		Artist:       resp.Artist,
		Title:        resp.Title,
		CreatorID:    resp.UserID,
		CreatorName:  resp.Creator,
		RankedStatus: models.RankedStatus(resp.Ranked),
		SubmittedAt:  resp.SubmittedDate,
		APIFetchedAt: c.now(),
	}

	for _, b := range resp.Beatmaps {
		beatmap := models.Beatmap{
			ID:           b.ID,
			BeatmapsetID: resp.ID,
			GameMode:     models.GameMode(b.ModeInt),
			Version:      b.Version,
			StarRating:   b.DifficultyRating,
			BPM:          b.BPM,
			RankedStatus: models.RankedStatus(b.Ranked),
		}
		if beatmap.GameMode == models.GameModeMania {
			keys := int(b.CS)
			beatmap.KeyCount = &keys
		}
		set.Beatmaps = append(set.Beatmaps, beatmap)
	}

	return set, nil
}

type userResponse struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	CountryCode  string `json:"country_code"`
	AvatarURL    string `json:"avatar_url"`
	IsRestricted bool   `json:"is_restricted"`
}

// User fetches a user by ID, or by name when byName is set
func (c *Client) User(ctx context.Context, key string, byName bool) (*models.User, error) {
	query := url.Values{"key": {"id"}}
	if byName {
		query.Set("key", "username")
	}

	var resp userResponse
	if err := c.get(ctx, "/users/"+url.PathEscape(key), query, &resp); err != nil {
		return nil, err
	}

	return &models.User{
		ID:           resp.ID,
		Name:         resp.Username,
		Country:      resp.CountryCode,
		AvatarURL:    resp.AvatarURL,
		Banned:       resp.IsRestricted,
		APIFetchedAt: c.now(),
	}, nil
}
