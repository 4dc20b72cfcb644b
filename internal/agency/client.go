package agency

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"docharvest/internal/config"
	"docharvest/internal/models"
)

// ErrUnexpectedStatusCode indicates an HTTP response with unexpected status.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

// maxListingBytes caps listing response bodies; agency listings are small
// and an unbounded read would let a misbehaving endpoint exhaust memory.
const maxListingBytes = 32 << 20

// Client talks to the agency directory API with config-driven retry
// logic. It implements both DirectoryAPI and Downloader.
type Client struct {
	http        *http.Client
	retryPolicy *config.RetryPolicy
	baseURL     string
	paths       config.APIConfig
}

// NewClient creates an API client for the configured endpoint.
func NewClient(api config.APIConfig, retry *config.RetryPolicy) *Client {
	return &Client{
		http: &http.Client{
			Timeout: retry.GetTimeout(),
		},
		retryPolicy: retry,
		baseURL:     api.BaseURL,
		paths:       api,
	}
}

// agencyEnvelope mirrors the upstream response for the agency listing.
type agencyEnvelope struct {
	ReturnValue struct {
		ObjectData struct {
			ResponseResult []models.Agency `json:"responseResult"`
		} `json:"objectData"`
	} `json:"returnValue"`
}

// contentEnvelope mirrors the upstream response for a content listing.
type contentEnvelope struct {
	ReturnValue struct {
		ContentVersionRes []models.ContentItem `json:"contentVersionRes"`
	} `json:"returnValue"`
}

// ListAgencies fetches the agency directory. Callers treat a failure
// here as fatal to the run.
func (c *Client) ListAgencies() ([]models.Agency, error) {
	var envelope agencyEnvelope
	if err := c.getJSON(c.baseURL+c.paths.AgenciesPath, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch agency listing: %w", err)
	}

	return envelope.ReturnValue.ObjectData.ResponseResult, nil
}

// ListContent fetches the content listing for one agency.
func (c *Client) ListContent(agencyID string) ([]models.ContentItem, error) {
	endpoint := fmt.Sprintf("%s%s?agencyId=%s", c.baseURL, c.paths.ContentPath, url.QueryEscape(agencyID))

	var envelope contentEnvelope
	if err := c.getJSON(endpoint, &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch content listing for agency %s: %w", agencyID, err)
	}

	return envelope.ReturnValue.ContentVersionRes, nil
}

// Fetch downloads one document into req.TargetDir and returns the local
// path. The file is written under a deterministic generated filename.
func (c *Client) Fetch(req DownloadRequest) (string, error) {
	endpoint := fmt.Sprintf("%s%s?documentId=%s", c.baseURL, c.paths.DownloadPath, url.QueryEscape(req.DocumentID))

	outPath := filepath.Join(req.TargetDir, GeneratedFilename(req))

	err := c.withRetry(endpoint, func(body io.Reader) error {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create download file: %w", err)
		}

		if _, err := io.Copy(f, body); err != nil {
			f.Close()
			os.Remove(outPath)
			return fmt.Errorf("failed to write download: %w", err)
		}

		return f.Close()
	})
	if err != nil {
		return "", fmt.Errorf("failed to download document %s: %w", req.DocumentID, err)
	}

	return outPath, nil
}

// getJSON fetches a URL and decodes the JSON body into v.
func (c *Client) getJSON(endpoint string, v any) error {
	return c.withRetry(endpoint, func(body io.Reader) error {
		if err := json.NewDecoder(io.LimitReader(body, maxListingBytes)).Decode(v); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

// withRetry performs a GET with the configured backoff policy and hands
// the response body to consume on success.
func (c *Client) withRetry(endpoint string, consume func(io.Reader) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.retryPolicy.MaxAttempts; attempt++ {
		if delay := c.retryPolicy.GetRetryDelay(attempt); delay > 0 {
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Accept", "application/json, application/pdf;q=0.9, */*;q=0.8")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt, c.retryPolicy.MaxAttempts, err)

			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)

			if !isRetryableStatus(resp.StatusCode) {
				return lastErr
			}

			continue
		}

		err = consume(resp.Body)
		resp.Body.Close()

		return err
	}

	return lastErr
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	// Retry on temporary failures
	switch statusCode {
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusRequestTimeout: // 408
		return true
	}

	return false
}
