// Package provider implements the HTTP client for the external video
// analysis provider. The provider is treated as a black box: it creates
// analysis jobs, reports their status, and owns the video catalog.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
)

// ErrJobNotFound indicates the provider no longer knows the job identifier,
// typically because the job was evicted from its retention window.
var ErrJobNotFound = errors.New("analysis job not found")

// APIError represents a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider API returned status %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors (4xx) are
// considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// Config holds the configuration for the provider client.
type Config struct {
	BaseURL string        // e.g. "https://analysis.example.com"
	APIKey  string        // Optional API key for authentication
	Timeout time.Duration // Per-request timeout (default: 300 seconds)
}

// Client is a client for the external analysis provider API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new provider client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 300 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type startJobRequest struct {
	VideoIDs []string `json:"video_ids,omitempty"`
	Brands   []string `json:"brands"`
}

type startJobResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// CreateJob asks the provider to start analyzing the given videos. A single
// video id uses the single-video endpoint, more than one the multi-video
// endpoint. It returns the provider-assigned job id used as the polling key.
func (c *Client) CreateJob(ctx context.Context, videoIDs []string, brands []string) (string, error) {
	if len(videoIDs) == 0 {
		return "", fmt.Errorf("create job: no video ids")
	}
	if brands == nil {
		brands = []string{}
	}

	var url string
	var payload startJobRequest
	if len(videoIDs) == 1 {
		url = fmt.Sprintf("%s/api/analyze/%s/start", c.baseURL, videoIDs[0])
		payload = startJobRequest{Brands: brands}
	} else {
		url = c.baseURL + "/api/analyze/multi/start"
		payload = startJobRequest{VideoIDs: videoIDs, Brands: brands}
	}

	var resp startJobResponse
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("create job: provider returned empty job id")
	}
	return resp.JobID, nil
}

// GetJobStatus fetches one status snapshot for a job. A 404 from the provider
// is mapped to ErrJobNotFound so callers can distinguish eviction from
// transient failures.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (*models.AnalysisStatus, error) {
	url := fmt.Sprintf("%s/api/analyze/status/%s", c.baseURL, jobID)

	var status models.AnalysisStatus
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &status); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
		}
		return nil, err
	}
	return &status, nil
}

// ListVideos fetches the provider's video catalog, used to offer selectable
// analysis inputs.
func (c *Client) ListVideos(ctx context.Context) (*models.VideoListing, error) {
	var listing models.VideoListing
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/videos", nil, &listing); err != nil {
		return nil, err
	}

	// The provider omits filenames for some entries; fall back to a short
	// id-derived label the way its own UI does.
	for i := range listing.Videos {
		if listing.Videos[i].Filename == "" || listing.Videos[i].Filename == "Unknown" {
			listing.Videos[i].Filename = shortVideoLabel(listing.Videos[i].ID)
		}
	}
	return &listing, nil
}

// GetVideoDetails fetches full metadata for one catalog entry.
func (c *Client) GetVideoDetails(ctx context.Context, videoID string) (*models.Video, error) {
	url := fmt.Sprintf("%s/api/video/%s/details", c.baseURL, videoID)

	var video models.Video
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &video); err != nil {
		return nil, err
	}
	if video.Filename == "" || video.Filename == "Unknown" {
		video.Filename = shortVideoLabel(video.ID)
	}
	return &video, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request to provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse provider response: %w", err)
		}
	}
	return nil
}

func shortVideoLabel(videoID string) string {
	if len(videoID) > 8 {
		videoID = videoID[:8]
	}
	return "Video_" + videoID
}
