package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flickrbackup/pkg/config"
	errs "flickrbackup/pkg/errors"
	"flickrbackup/pkg/logger"
	"flickrbackup/pkg/paging"
	"flickrbackup/pkg/ratelimit"
	"flickrbackup/pkg/retry"
)

// Client talks to the photo service REST API
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	baseURL        string
	userID         string
	pageSize       int
	signer         Signer
	limiter        ratelimit.Limiter
	retry          *retry.Config
	logger         logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for API calls and downloads
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.downloadClient = hc
	}
}

// WithSigner replaces the request signer
func WithSigner(s Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithLimiter replaces the rate limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetry replaces the retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client from the flickr settings
func NewClient(cfg config.FlickrConfig, opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		downloadClient: &http.Client{},
		baseURL:        cfg.BaseURL,
		userID:         cfg.UserID,
		pageSize:       cfg.PageSize,
		signer:         APIKeySigner{APIKey: cfg.APIKey},
		limiter:        ratelimit.Unlimited{},
		retry:          retry.DefaultConfig(),
		logger:         logger.GetLogger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.userID == "" {
		c.userID = "me"
	}
	if c.pageSize <= 0 {
		c.pageSize = paging.DefaultPageSize
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithField("component", "flickr")
	return c
}

// PageSize is the per_page value sent on listings
func (c *Client) PageSize() int {
	return c.pageSize
}

// call invokes a remote method and decodes the response into target,
// retrying transport and rate limit failures
func (c *Client) call(ctx context.Context, method string, params url.Values, target interface{}) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		return c.callOnce(ctx, method, params, target)
	}, c.retry)
}

func (c *Client) callOnce(ctx context.Context, method string, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	values := url.Values{}
	for k, v := range params {
		values[k] = append([]string(nil), v...)
	}
	values.Set("method", method)
	values.Set("format", "json")
	values.Set("nojsoncallback", "1")

	httpMethod := http.MethodGet
	if writeMethods[method] {
		httpMethod = http.MethodPost
	}
	if err := c.signer.Sign(httpMethod, c.baseURL, values); err != nil {
		return err
	}

	var req *http.Request
	var err error
	if httpMethod == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, httpMethod, c.baseURL, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, httpMethod, c.baseURL+"?"+values.Encode(), nil)
	}
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeUnknown, Op: method, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   method,
			"duration": duration,
		})
		return &errs.Error{Type: errs.ErrorTypeRemoteTransport, Op: method, Message: "network error", Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   method,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := checkResponseStatus(method, resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypeRemoteTransport, Op: method, Message: "failed to read response body", Err: err}
	}

	return decodeResponse(method, body, target)
}

func checkResponseStatus(method string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &errs.Error{
		Type:    errs.TypeForStatus(resp.StatusCode),
		Op:      method,
		Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
		Code:    resp.StatusCode,
	}
}

func decodeResponse(method string, body []byte, target interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &errs.Error{Type: errs.ErrorTypeMalformedResponse, Op: method, Message: "failed to parse JSON: " + preview(body), Err: err}
	}
	if env.Stat != "ok" {
		if env.Stat == "fail" {
			return apiError(method, env)
		}
		return &errs.Error{Type: errs.ErrorTypeMalformedResponse, Op: method, Message: fmt.Sprintf("unexpected stat %q", env.Stat)}
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &errs.Error{Type: errs.ErrorTypeMalformedResponse, Op: method, Message: "failed to parse JSON: " + preview(body), Err: err}
	}
	return nil
}

// apiError maps the service's numeric failure codes onto error types
func apiError(method string, env envelope) error {
	t := errs.ErrorTypeUnknown
	switch env.Code {
	case 1, 2:
		t = errs.ErrorTypeNotFound
	case 95, 96, 97, 98, 99, 100:
		t = errs.ErrorTypeAuth
	case 105, 106:
		t = errs.ErrorTypeRemoteTransport
	}
	return &errs.Error{Type: t, Op: method, Message: env.Message, Code: env.Code}
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// OpenPhoto starts downloading an original. The caller closes the body.
func (c *Client) OpenPhoto(ctx context.Context, photoURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeMalformedResponse, Op: "download", Message: "invalid photo URL", Err: err}
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, &errs.Error{Type: errs.ErrorTypeRemoteTransport, Op: "download", Message: "network error", Err: err}
	}
	if err := checkResponseStatus("download", resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}
