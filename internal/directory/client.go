package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client is a minimal REST client for a hierarchical document store.
// Paths are collection paths relative to the configured documents
// root, e.g. "batches/B1/schedules".
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a client. baseURL is the documents root of the
// store, apiKey is an optional query credential appended to each call.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("directory: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

type listResponse struct {
	Documents []Document `json:"documents"`
}

// ListDocuments fetches all documents in a collection. A 404 maps to
// ErrNotFound; callers decide whether that is benign.
func (c *Client) ListDocuments(ctx context.Context, path string) ([]Document, error) {
	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// CreateDocument appends a document to a collection and returns the
// stored form, including the server-assigned name.
func (c *Client) CreateDocument(ctx context.Context, path string, fields map[string]Value) (Document, error) {
	var created Document
	if err := c.do(ctx, http.MethodPost, path, Document{Fields: fields}, &created); err != nil {
		return Document{}, err
	}
	return created, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c == nil {
		return errors.New("directory: nil client")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("directory: empty path")
	}

	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	endpoint := c.baseURL + "/" + strings.Trim(path, "/")
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode >= 300:
		return &TransportError{Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Err: err}
	}
	return nil
}
