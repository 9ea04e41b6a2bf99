package couchdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Client is a minimal CouchDB REST client scoped to one database. It covers
// only what the counting contract needs: installing the design document and
// querying its reduce view.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	database    string
	logger      *slog.Logger
}

// NewClient builds a client for the database at baseURL (scheme://host:port,
// credentials in userinfo if needed). rateLimit caps requests per second.
func NewClient(baseURL, database string, rateLimit int) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid CouchDB URL %q: %w", baseURL, err)
	}
	if rateLimit <= 0 {
		rateLimit = 10
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		baseURL:     baseURL,
		database:    database,
		logger:      slog.Default().With("component", "couchdb"),
	}, nil
}

// Ping verifies the database exists and is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.database, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("database %s not reachable: %s", c.database, resp.Status)
	}
	return nil
}

// EnsureDesignDocument installs the entities design document, preserving the
// stored revision when the document already exists so the PUT does not
// conflict.
func (c *Client) EnsureDesignDocument(ctx context.Context) error {
	doc := NewEntitiesDesignDocument()

	existing, err := c.do(ctx, http.MethodGet, c.database+"/"+url.PathEscape(doc.ID), nil)
	if err != nil {
		return err
	}
	switch existing.StatusCode {
	case http.StatusOK:
		var stored DesignDocument
		if err := json.NewDecoder(existing.Body).Decode(&stored); err != nil {
			existing.Body.Close()
			return fmt.Errorf("failed to decode design document: %w", err)
		}
		existing.Body.Close()
		doc.Rev = stored.Rev
	case http.StatusNotFound:
		existing.Body.Close()
	default:
		existing.Body.Close()
		return fmt.Errorf("unexpected status fetching design document: %s", existing.Status)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode design document: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, c.database+"/"+url.PathEscape(doc.ID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to install design document: %s", resp.Status)
	}
	c.logger.Info("design document installed", "id", doc.ID)
	return nil
}

type viewResponse struct {
	Rows []struct {
		Value int64 `json:"value"`
	} `json:"rows"`
}

// CountEntities queries the number view and returns the entity count. An
// empty result set means zero entities.
func (c *Client) CountEntities(ctx context.Context) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, c.database+"/"+EntitiesNumberViewPath, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("view query failed: %s", resp.Status)
	}
	var view viewResponse
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return 0, fmt.Errorf("failed to decode view response: %w", err)
	}
	if len(view.Rows) == 0 {
		return 0, nil
	}
	return view.Rows[0].Value, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
