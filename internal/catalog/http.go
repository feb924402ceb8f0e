package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rshade/stagehand/internal/logging"
)

// PluginID is the catalog's discovery id.
const PluginID = "catalog"

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// HTTPClientOptions configures NewHTTPClient.
type HTTPClientOptions struct {
	Discovery Discovery
	Tokens    TokenSource

	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client

	// RateLimit is requests per second; 0 disables throttling.
	RateLimit float64
	Burst     int

	Logger *zerolog.Logger
}

// HTTPClient implements Client against the catalog REST API.
type HTTPClient struct {
	discovery Discovery
	tokens    TokenSource
	http      *http.Client
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// NewHTTPClient creates a catalog client. Discovery is required.
func NewHTTPClient(opts HTTPClientOptions) (*HTTPClient, error) {
	if opts.Discovery == nil {
		return nil, fmt.Errorf("catalog client: discovery is required")
	}
	c := &HTTPClient{
		discovery: opts.Discovery,
		tokens:    opts.Tokens,
		http:      opts.HTTPClient,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	base := logging.Default()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	c.logger = logging.ComponentLogger(base, "catalog")
	return c, nil
}

// GetEntityByRef implements Client.
func (c *HTTPClient) GetEntityByRef(ctx context.Context, ref string) (*Entity, error) {
	r, err := ParseRef(ref, Defaults{})
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/entities/by-name/%s/%s/%s",
		url.PathEscape(r.Kind), url.PathEscape(r.Namespace), url.PathEscape(r.Name))

	var entity Entity
	status, err := c.do(ctx, http.MethodGet, path, nil, nil, &entity)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

type byRefsRequest struct {
	EntityRefs []string `json:"entityRefs"`
}

type byRefsResponse struct {
	Items []*Entity `json:"items"`
}

// GetEntitiesByRefs implements Client.
func (c *HTTPClient) GetEntitiesByRefs(ctx context.Context, refs []string) ([]*Entity, error) {
	if len(refs) == 0 {
		return []*Entity{}, nil
	}

	var resp byRefsResponse
	if _, err := c.do(ctx, http.MethodPost, "/entities/by-refs", nil, byRefsRequest{EntityRefs: refs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) != len(refs) {
		return nil, fmt.Errorf("%w: by-refs returned %d items for %d refs",
			ErrRequestFailed, len(resp.Items), len(refs))
	}
	return resp.Items, nil
}

// GetEntities implements Client.
func (c *HTTPClient) GetEntities(ctx context.Context, req GetEntitiesRequest) (*GetEntitiesResponse, error) {
	var items []Entity
	if _, err := c.do(ctx, http.MethodGet, "/entities", req.query(), nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Entity{}
	}
	return &GetEntitiesResponse{Items: items}, nil
}

// do performs one request. The returned status is set whenever a response was
// received, including on error.
func (c *HTTPClient) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body any,
	out any,
) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}
	}

	baseURL, err := c.discovery.GetBaseURL(ctx, PluginID)
	if err != nil {
		return 0, fmt.Errorf("resolving catalog url: %w", err)
	}
	fullURL := strings.TrimSuffix(baseURL, "/") + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return 0, fmt.Errorf("encoding request: %w", marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, tokenErr := c.tokens.GetToken(ctx)
		if tokenErr != nil {
			return 0, fmt.Errorf("getting token: %w", tokenErr)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Ctx(ctx).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration_ms", time.Since(start)).
		Msg("catalog request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %s: %s",
			ErrRequestFailed, method, path, resp.Status, strings.TrimSpace(string(snippet)))
	}

	if out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			return resp.StatusCode, fmt.Errorf("decoding %s response: %w", path, decodeErr)
		}
	}
	return resp.StatusCode, nil
}
