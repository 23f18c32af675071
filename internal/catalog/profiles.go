package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/workshopindex/workshop-server/internal/errors"
	"github.com/workshopindex/workshop-server/internal/ratelimit"
)

const profileSummariesPath = "/ISteamUser/GetPlayerSummaries/v2/"

// ProfileClient fetches display names in batches.
type ProfileClient struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	baseURL string
	token   string
	logger  *slog.Logger
}

// NewProfileClient creates a profile lookup client.
func NewProfileClient(baseURL, token string, logger *slog.Logger) *ProfileClient {
	return &ProfileClient{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		baseURL: baseURL,
		token:   token,
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *ProfileClient) Close() {
	c.limiter.Stop()
}

// FetchProfiles looks up display names for a batch of ids in one call.
// Ids are comma-joined; the endpoint caps batch sizes, which the profile
// batcher enforces before calling. Returns errors.ErrRateLimited on 429.
func (c *ProfileClient) FetchProfiles(ctx context.Context, ids []string) ([]Profile, error) {
	if err := c.limiter.Wait(ctx, "profiles"); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("key", c.token)
	query.Set("steamids", strings.Join(ids, ","))

	u, err := url.Parse(c.baseURL + profileSummariesPath)
	if err != nil {
		return nil, err
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "workshop-server/1.0")

	c.logger.Debug("profile lookup", "batch", len(ids))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, errors.ErrRateLimited
	default:
		return nil, errors.Internalf("profile lookup returned status %d", resp.StatusCode)
	}

	var envelope profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	return envelope.Response.Players, nil
}
