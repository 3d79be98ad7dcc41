// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api is a client for the e-queo learning platform's private REST API.
// It walks the paginated endpoints that describe a course module's learning
// programs and fetches longread page bodies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/equeo-export/internal/httputil"
	"github.com/pdiddy/equeo-export/pkg/types"
)

// DefaultBaseURL is the versioned API root.
const DefaultBaseURL = "https://api.e-queo.online/v40"

const contentTypeJSON = "application/json;charset=UTF-8"

// Client talks to the platform API. Requests are sent one at a time.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	userAgent  string
	maxRetries int
}

// NewClient builds a client from cfg. An empty BaseURL selects
// DefaultBaseURL; an empty UserAgent picks a random browser User-Agent that
// is then used for every request of this client.
func NewClient(httpClient *http.Client, cfg types.APIConfig) (*Client, error) {
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("auth token is empty: set auth_token in config.ini")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = httputil.RandomUserAgent()
	}
	return &Client{
		http:       httpClient,
		baseURL:    base,
		token:      cfg.AuthToken,
		userAgent:  ua,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// UserAgent returns the User-Agent header this client sends.
func (c *Client) UserAgent() string { return c.userAgent }

// envelope is the response wrapper shared by every endpoint.
type envelope[T any] struct {
	Success T `json:"success"`
}

type meta struct {
	Pagination struct {
		PagesCount int `json:"pages_count"`
	} `json:"pagination"`
}

// do sends one request and decodes the "success" payload into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := marshalBody(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	var (
		req *http.Request
		err error
	)
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

// marshalBody encodes v as UTF-8 JSON without escaping HTML or non-ASCII
// characters.
func marshalBody(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// paginate calls fetch for page 1, 2, ... while the current page is below
// the pages_count reported by the previous response.
func paginate(ctx context.Context, fetch func(page int) (pagesCount int, err error)) error {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		pagesCount, err := fetch(page)
		if err != nil {
			return err
		}
		if page >= pagesCount {
			return nil
		}
	}
}

func pageQuery(page int) url.Values {
	return url.Values{"page": {strconv.Itoa(page)}}
}
