// Package inference connects the pipeline to the extraction backend through
// a single-slot admission gate.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/workshopindex/workshop-server/internal/domain"
	"github.com/workshopindex/workshop-server/internal/errors"
)

// Classifier is the opaque extraction backend. It returns a fixed-shape
// classification record and enforces single-flight concurrency itself; the
// gate in this package never issues overlapping calls regardless.
type Classifier interface {
	Classify(ctx context.Context, title, description string) (*domain.Classification, error)
}

// Generation can take minutes on a loaded backend.
const classifyTimeout = 5 * time.Minute

// Client is an HTTP Classifier.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates an extraction backend client.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: classifyTimeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

type classifyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Classify sends one (title, description) pair for property extraction.
func (c *Client) Classify(ctx context.Context, title, description string) (*domain.Classification, error) {
	payload, err := json.Marshal(classifyRequest{Title: title, Description: description})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Internalf("extraction backend returned status %d", resp.StatusCode)
	}

	var record domain.Classification
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	return &record, nil
}
