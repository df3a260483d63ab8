// Package client talks to the grid's backing web application: one GET that
// loads a page (rows + page config), and the three JSON POST endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gridedit/internal/model"
)

const (
	// CSRFHeader carries the anti-forgery token on every POST.
	CSRFHeader = "X-CSRFToken"

	maxBodyBytes = 16 << 20
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is not safe for concurrent Load calls; POSTs only read the endpoint
// set captured by the last Load or Configure.
type Client struct {
	gridURL    *url.URL
	httpClient *http.Client
	headers    http.Header
	logger     *slog.Logger

	saveURL   string
	insertURL string
	deleteURL string
	csrfToken string
	loaded    bool
}

// New creates a Client for the grid page at gridURL.
func New(gridURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(gridURL) == "" {
		return nil, errors.New("client: grid URL is required")
	}
	parsed, err := url.Parse(gridURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid grid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("client: grid URL must be absolute: %q", gridURL)
	}

	c := &Client{
		gridURL: parsed,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		headers: make(http.Header),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load fetches one page of the grid and captures its endpoints and token.
func (c *Client) Load(ctx context.Context, q model.Query) (model.Page, error) {
	u := *c.gridURL
	u.RawQuery = encodeQuery(c.gridURL.Query(), q).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Page{}, err
	}
	req.Header = cloneHeader(c.headers)
	req.Header.Set("Accept", "application/json")

	status, body, err := c.roundTrip(req, "load")
	if err != nil {
		return model.Page{}, err
	}
	if status < 200 || status > 299 {
		return model.Page{}, &InvalidResponseError{StatusCode: status, Body: body, Err: fmt.Errorf("unexpected status %d", status)}
	}

	var page model.Page
	if err := json.Unmarshal(body, &page); err != nil {
		return model.Page{}, &InvalidResponseError{StatusCode: status, Body: body, Err: err}
	}
	if err := c.Configure(page.Config); err != nil {
		return model.Page{}, err
	}
	return page, nil
}

// Configure captures endpoints and token from a page config. Relative URLs
// resolve against the grid URL.
func (c *Client) Configure(cfg model.GridConfig) error {
	var err error
	if c.saveURL, err = c.resolve(cfg.SaveURL); err != nil {
		return err
	}
	if c.insertURL, err = c.resolve(cfg.InsertURL); err != nil {
		return err
	}
	if c.deleteURL, err = c.resolve(cfg.DeleteURL); err != nil {
		return err
	}
	c.csrfToken = cfg.CSRFToken
	c.loaded = true
	return nil
}

func (c *Client) Save(ctx context.Context, req model.SaveRequest) (model.Result, error) {
	return c.post(ctx, "save", c.saveURL, req)
}

func (c *Client) Insert(ctx context.Context, req model.InsertRequest) (model.Result, error) {
	return c.post(ctx, "insert", c.insertURL, req)
}

func (c *Client) Delete(ctx context.Context, req model.DeleteRequest) (model.Result, error) {
	return c.post(ctx, "delete", c.deleteURL, req)
}

func (c *Client) post(ctx context.Context, op string, endpoint string, payload any) (model.Result, error) {
	if !c.loaded || endpoint == "" {
		return model.Result{}, ErrNotLoaded
	}
	data, err := jsonMarshal(payload)
	if err != nil {
		return model.Result{}, fmt.Errorf("client: encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return model.Result{}, err
	}
	req.Header = cloneHeader(c.headers)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.csrfToken != "" {
		req.Header.Set(CSRFHeader, c.csrfToken)
	}

	status, body, err := c.roundTrip(req, op)
	if err != nil {
		return model.Result{}, err
	}

	// The body decides the outcome; a JSON {"ok":false} may arrive with any status.
	var res model.Result
	if err := decodeResult(body, &res); err != nil {
		return model.Result{}, &InvalidResponseError{StatusCode: status, Body: body, Err: err}
	}
	if !res.OK {
		return res, &ServerError{Result: res}
	}
	return res, nil
}

func (c *Client) roundTrip(req *http.Request, op string) (int, []byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("grid request failed", "op", op, "url", req.URL.String(), "error", err)
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Err: err}
	}
	c.logger.Debug("grid request",
		"op", op,
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"dur", time.Since(start),
	)
	return resp.StatusCode, body, nil
}

func (c *Client) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("client: invalid endpoint %q: %w", ref, err)
	}
	return c.gridURL.ResolveReference(parsed).String(), nil
}

func decodeResult(body []byte, res *model.Result) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return errors.New("empty body")
	}
	if body[0] != '{' {
		return errors.New("not a JSON object")
	}
	return json.Unmarshal(body, res)
}

func encodeQuery(base url.Values, q model.Query) url.Values {
	v := url.Values{}
	for k, vs := range base {
		v[k] = append([]string(nil), vs...)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	for col, f := range q.Filters {
		if strings.TrimSpace(f) == "" {
			continue
		}
		v.Set("filter_"+col, f)
	}
	return v
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}

func jsonMarshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
