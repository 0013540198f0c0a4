package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-graphview/pkg/graph"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// HTTPClient talks JSON to the knowledge-graph API of one workspace:
//
//	GET    {base}/api/workspaces/{ws}/graph?types=a,b&center=id&hops=n&limit=n
//	POST   {base}/api/workspaces/{ws}/links
//	PATCH  {base}/api/workspaces/{ws}/links/{id}
//	DELETE {base}/api/workspaces/{ws}/links/{id}
type HTTPClient struct {
	baseURL    string
	workspace  string
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPClient) {
		if d > 0 {
			h.httpClient.Timeout = d
		}
	}
}

// NewHTTPClient creates a client for workspace at baseURL.
func NewHTTPClient(baseURL, workspace string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	if workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		workspace:  workspace,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+3)
	escaped = append(escaped, c.baseURL, "api/workspaces", url.PathEscape(c.workspace))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, op, method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Cause: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &RequestError{Op: op, Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Op: op, Cause: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := fmt.Errorf("%w: %s", ErrStatus, strings.TrimSpace(string(snippet)))
		if resp.StatusCode == http.StatusNotFound && (op == OpUpdate || op == OpDelete) {
			cause = fmt.Errorf("%w: %w", ErrLinkNotFound, cause)
		}
		return &RequestError{Op: op, Status: resp.StatusCode, Cause: cause}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// FetchSnapshot implements GraphSource.
func (c *HTTPClient) FetchSnapshot(ctx context.Context, req FetchRequest) (graph.Snapshot, error) {
	q := url.Values{}
	if len(req.NodeTypes) > 0 {
		types := make([]string, len(req.NodeTypes))
		for i, t := range req.NodeTypes {
			types[i] = string(t)
		}
		q.Set("types", strings.Join(types, ","))
	}
	if req.Focus != nil && req.Focus.CenterNodeID != "" {
		q.Set("center", req.Focus.CenterNodeID)
		q.Set("hops", strconv.Itoa(req.Focus.HopDepth))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	target := c.endpoint("graph")
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var snap graph.Snapshot
	if err := c.do(ctx, OpFetch, http.MethodGet, target, nil, &snap); err != nil {
		return graph.Snapshot{}, err
	}
	return snap, nil
}

// CreateLink implements LinkService.
func (c *HTTPClient) CreateLink(ctx context.Context, req graph.CreateLinkRequest) (graph.CreatedLink, error) {
	var created graph.CreatedLink
	if err := c.do(ctx, OpCreate, http.MethodPost, c.endpoint("links"), req, &created); err != nil {
		return graph.CreatedLink{}, err
	}
	return created, nil
}

// UpdateLink implements LinkService.
func (c *HTTPClient) UpdateLink(ctx context.Context, req graph.UpdateLinkRequest) error {
	target := c.endpoint("links", strconv.FormatInt(req.LinkID, 10))
	return c.do(ctx, OpUpdate, http.MethodPatch, target, req, nil)
}

// DeleteLink implements LinkService.
func (c *HTTPClient) DeleteLink(ctx context.Context, linkID int64) error {
	target := c.endpoint("links", strconv.FormatInt(linkID, 10))
	return c.do(ctx, OpDelete, http.MethodDelete, target, nil, nil)
}
