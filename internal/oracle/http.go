package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// HTTPOracle calls a remote scoring service over HTTP. The client enforces
// a per-request timeout and an optional rate limit; it classifies failures
// so the retry policy can tell transient from fatal.
type HTTPOracle struct {
	url     string
	client  *resty.Client
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPOracle.
type HTTPOption func(*HTTPOracle)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *HTTPOracle) {
		o.client.SetTimeout(d)
	}
}

// WithRateLimit caps outgoing evaluations at n per second.
func WithRateLimit(n float64) HTTPOption {
	return func(o *HTTPOracle) {
		if n > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// NewHTTPOracle creates an oracle client for the given evaluation endpoint.
func NewHTTPOracle(url string, opts ...HTTPOption) *HTTPOracle {
	client := resty.New()
	client.SetTimeout(120 * time.Second)

	o := &HTTPOracle{
		url:    url,
		client: client,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type evaluateRequest struct {
	Parameters models.Parameters `json:"parameters"`
	Reynolds   int               `json:"reynolds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Evaluate posts the design to the scoring service and parses the verdict.
func (o *HTTPOracle) Evaluate(ctx context.Context, params models.Parameters, reynolds int) (*models.Evaluation, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, &TransientError{Op: "rate wait", Err: err}
		}
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evaluateRequest{Parameters: params, Reynolds: reynolds}).
		Post(o.url)
	if err != nil {
		// Network failures and timeouts are retryable.
		return nil, &TransientError{Op: "evaluate", Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		var eval models.Evaluation
		if err := json.Unmarshal(resp.Body(), &eval); err != nil {
			return nil, fmt.Errorf("failed to decode oracle response: %w", err)
		}
		if eval.Cd <= 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("non-physical drag coefficient %v", eval.Cd)}
		}
		return &eval, nil

	case resp.StatusCode() == http.StatusTooManyRequests,
		resp.StatusCode() >= http.StatusInternalServerError:
		return nil, &TransientError{
			Op:  "evaluate",
			Err: fmt.Errorf("oracle returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200)),
		}

	default:
		var body errorResponse
		reason := truncate(resp.String(), 200)
		if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
			reason = body.Error
		}
		return nil, &ValidationError{Reason: fmt.Sprintf("status %d: %s", resp.StatusCode(), reason)}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
