package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/watchx/internal/models"
	"github.com/desertthunder/watchx/internal/shared"
)

const defaultDocumentBaseURL = "http://127.0.0.1:3000"

// DocumentClient talks to the watchlist document service.
type DocumentClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewDocumentClient creates a client for the document service at baseURL.
//
// token is sent as a bearer credential when non-empty.
func NewDocumentClient(baseURL, token string, client *http.Client) *DocumentClient {
	if baseURL == "" {
		baseURL = defaultDocumentBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &DocumentClient{baseURL: baseURL, token: token, httpClient: client}
}

func (c *DocumentClient) documentPath(userID string) string {
	return c.baseURL + "/api/users/" + url.PathEscape(userID) + "/watchlist"
}

// Get fetches the document for userID.
func (c *DocumentClient) Get(ctx context.Context, userID string) (*models.WatchlistDocument, error) {
	var doc models.WatchlistDocument
	if err := c.doRequest(ctx, http.MethodGet, c.documentPath(userID), nil, &doc); err != nil {
		return nil, err
	}
	if doc.Watchlist == nil {
		doc.Watchlist = []models.MediaReference{}
	}
	return &doc, nil
}

// Set writes doc for userID, creating the record if needed.
func (c *DocumentClient) Set(ctx context.Context, userID string, doc models.WatchlistDocument, merge bool) error {
	endpoint := c.documentPath(userID) + "?merge=" + strconv.FormatBool(merge)
	return c.doRequest(ctx, http.MethodPut, endpoint, doc, nil)
}

// Update overwrites the watchlist of an existing record.
func (c *DocumentClient) Update(ctx context.Context, userID string, doc models.WatchlistDocument) error {
	return c.doRequest(ctx, http.MethodPatch, c.documentPath(userID), doc, nil)
}

// Health checks that the document service is reachable.
func (c *DocumentClient) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, c.baseURL+"/health", nil, nil)
}

func (c *DocumentClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// statusError maps a non-2xx response onto the shared sentinel errors.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&errResp)
	detail := errResp.Error
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, detail)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
}
