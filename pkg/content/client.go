package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	errs "autored/pkg/errors"
	"autored/pkg/logger"
	"autored/pkg/ratelimit"
	"autored/pkg/retry"
)

// maxErrorBody bounds how much of an error response is kept for the log
const maxErrorBody = 200

// Client is the JSON-over-HTTP client shared by the generative backends
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// NewClient creates a client with the given per-request timeout
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent": "autored/" + logger.Version,
			"Accept":     "application/json",
		},
		limiter: ratelimit.Unlimited{},
		retry: &retry.Config{
			MaxAttempts: 3,
			RetryIf:     retry.DefaultRetryIf,
			Logger:      log,
		},
		logger: log,
	}
}

// SetHeader sets a header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetLimiter throttles outgoing requests
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	c.limiter = l
}

// SetRetry replaces the retry policy; attempts < 1 disables retries
func (c *Client) SetRetry(attempts int, backoff retry.BackoffStrategy) {
	if attempts < 1 {
		attempts = 1
	}
	c.retry = &retry.Config{
		MaxAttempts: attempts,
		Backoff:     backoff,
		RetryIf:     retry.DefaultRetryIf,
		Logger:      c.logger,
	}
}

// Response is a fully read HTTP response
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// PostJSON posts payload as JSON and decodes the JSON answer into target
func (c *Client) PostJSON(ctx context.Context, endpoint string, headers map[string]string, payload, target interface{}) error {
	resp, err := c.Post(ctx, endpoint, headers, payload)
	if err != nil {
		return err
	}
	return c.decode(endpoint, resp, target)
}

// Post posts payload as JSON with retries and returns the raw answer
func (c *Client) Post(ctx context.Context, endpoint string, headers map[string]string, payload interface{}) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "encode request")
	}

	return retry.DoWithResult(ctx, func(ctx context.Context) (*Response, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "create request")
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		return c.doRequest(req)
	}, c.retry)
}

// doRequest sends req, reads the body and classifies the status
func (c *Client) doRequest(req *http.Request) (*Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    redact(req.URL.String()),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      redact(req.URL.String()),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "network error")
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, redact(req.URL.String()), resp.StatusCode, duration)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := c.checkResponseStatus(req, resp.StatusCode, data); err != nil {
		return nil, err
	}
	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// checkResponseStatus maps an HTTP status onto the error taxonomy
func (c *Client) checkResponseStatus(req *http.Request, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	errorType := errs.TypeForStatus(status)
	fields := map[string]interface{}{
		"status":       status,
		"url":          redact(req.URL.String()),
		"body_preview": preview(body),
	}
	switch errorType {
	case errs.ErrorTypeRateLimit, errs.ErrorTypeAuth, errs.ErrorTypeNotFound:
		c.logger.WarnWithFields(string(errorType), fields)
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
	}

	return &errs.Error{
		Type:    errorType,
		Message: fmt.Sprintf("unexpected status code: %d: %s", status, preview(body)),
		Code:    status,
	}
}

func (c *Client) decode(endpoint string, resp *Response, target interface{}) error {
	if err := json.Unmarshal(resp.Body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          redact(endpoint),
			"status":       resp.Status,
			"error":        err.Error(),
			"body_preview": preview(resp.Body),
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "failed to parse JSON",
			Code:    resp.Status,
			Err:     err,
		}
	}
	return nil
}

// redact drops the query string, which may carry credentials
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

func preview(body []byte) string {
	r := []rune(string(body))
	if len(r) > maxErrorBody {
		return string(r[:maxErrorBody]) + "..."
	}
	return string(r)
}
