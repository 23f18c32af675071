package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/workshopindex/workshop-server/internal/errors"
	"github.com/workshopindex/workshop-server/internal/ratelimit"
)

const (
	// Rate limit: 1 request per second per app, burst of 2.
	defaultRPS   = 1.0
	defaultBurst = 2

	defaultTimeout = 30 * time.Second

	queryFilesPath = "/IPublishedFileService/QueryFiles/v1/"

	// FirstCursor is the opaque cursor value that starts a pagination run.
	FirstCursor = "*"
)

// MalformedPageError reports a response body that failed to decode as a
// page. The raw body is carried so the scheduler can persist it for
// postmortem.
type MalformedPageError struct {
	Body []byte
	err  error
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("malformed catalog page: %v", e.err)
}

func (e *MalformedPageError) Unwrap() error { return e.err }

// Client is a rate-limited catalog API client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	baseURL string
	token   string
	// pageSize is the fixed request page size.
	pageSize int
	logger   *slog.Logger
}

// NewClient creates a catalog client.
func NewClient(baseURL, token string, pageSize int, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  ratelimit.New(defaultRPS, defaultBurst),
		baseURL:  baseURL,
		token:    token,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// FetchPage requests one page of an app's items at the given cursor.
// A body that does not decode as a page is returned as *MalformedPageError
// with the raw bytes attached; it is never retried here.
func (c *Client) FetchPage(ctx context.Context, appID int64, cursor string) (*Page, error) {
	if err := c.limiter.Wait(ctx, strconv.FormatInt(appID, 10)); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	query := url.Values{}
	query.Set("key", c.token)
	query.Set("appid", strconv.FormatInt(appID, 10))
	query.Set("cursor", cursor)
	query.Set("numperpage", strconv.Itoa(c.pageSize))
	query.Set("return_tags", "true")
	query.Set("return_children", "true")
	query.Set("return_vote_data", "true")
	query.Set("return_details", "true")
	query.Set("query_type", "21") // ranked by last updated date

	body, err := c.get(ctx, c.baseURL+queryFilesPath, query)
	if err != nil {
		return nil, err
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &MalformedPageError{Body: body, err: err}
	}

	return &Page{
		AppID:      appID,
		Total:      envelope.Response.Total,
		NextCursor: envelope.Response.NextCursor,
		Entries:    envelope.Response.PublishedFileDetails,
	}, nil
}

// get executes a GET request and returns the body on 200.
func (c *Client) get(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "workshop-server/1.0")

	c.logger.Debug("catalog request", "path", u.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		return nil, errors.ErrRateLimited
	case http.StatusNotFound:
		return nil, errors.ErrNotFound
	default:
		if resp.StatusCode >= 500 {
			return nil, errors.Internalf("catalog returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// DecodeEntry deserializes one raw page entry.
func DecodeEntry(raw json.RawMessage) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
