package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/bookstore-storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/bookstore-storefront/pkg/errors"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1 << 20
	errorBodyReadLimit    int64 = 4096

	// IdempotencyHeader carries the key for mutating calls.
	IdempotencyHeader = "Idempotency-Key"
)

var errBaseURLRequired = errors.New("commerce base url is required")

// Client talks to the remote commerce REST API on behalf of the session in ctx.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[struct{}]
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient  *http.Client
	maxFailures uint32
	openTimeout time.Duration
	onState     func(from, to string)
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBreaker sets the consecutive-failure threshold and the open interval.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(o *clientOptions) {
		if maxFailures > 0 {
			o.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			o.openTimeout = openTimeout
		}
	}
}

// WithBreakerStateHook is called on every breaker transition.
func WithBreakerStateHook(fn func(from, to string)) Option {
	return func(o *clientOptions) {
		o.onState = fn
	}
}

// NewClient builds the commerce client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	o := clientOptions{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		maxFailures: 5,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	settings := gobreaker.Settings{
		Name:    "commerce",
		Timeout: o.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.maxFailures
		},
		IsSuccessful: func(err error) bool {
			// Only transport and upstream faults count against the backend.
			return err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeDependency)
		},
	}
	if o.onState != nil {
		hook := o.onState
		settings.OnStateChange = func(_ string, from, to gobreaker.State) {
			hook(from.String(), to.String())
		}
	}

	return &Client{
		httpClient: o.httpClient,
		baseURL:    trimmed,
		breaker:    gobreaker.NewCircuitBreaker[struct{}](settings),
		now:        time.Now,
	}, nil
}

// BreakerState reports the circuit breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Ready fails when the breaker is open.
func (c *Client) Ready(context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return pkgerrors.New(pkgerrors.CodeDependency, "commerce backend circuit open")
	}
	return nil
}

type call struct {
	method         string
	path           string
	body           any
	idempotencyKey string
	out            any
}

func (c *Client) do(ctx context.Context, cl call) error {
	cred, err := auth.RequireCredential(ctx, c.now())
	if err != nil {
		return err
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, cred.Token, cl)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commerce backend unavailable")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, token string, cl call) error {
	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal commerce request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build commerce request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, cl.idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s failed", cl.method, cl.path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return statusError(resp.StatusCode, raw)
	}
	if cl.out == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read commerce response")
	}
	if err := decodeBody(raw, cl.out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode commerce response")
	}
	return nil
}

// decodeBody accepts both bare payloads and {"data": ...} envelopes.
func decodeBody(raw []byte, out any) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(raw, out)
}

func statusError(status int, raw []byte) error {
	msg := errorMessage(raw)
	code, fallback := codeForStatus(status)
	if msg == "" {
		msg = fallback
	}
	cause := fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(raw)))
	return pkgerrors.Wrap(code, cause, msg)
}

func codeForStatus(status int) (pkgerrors.Code, string) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized, "session expired, please sign in again"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation, "request rejected by commerce backend"
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound, "resource not found"
	case http.StatusConflict:
		return pkgerrors.CodeConflict, "request conflicts with current cart state"
	case http.StatusPaymentRequired:
		return pkgerrors.CodePaymentFailed, "payment was not completed"
	case http.StatusGone:
		return pkgerrors.CodePaymentOrderExpired, "payment order expired"
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit, "too many requests"
	default:
		return pkgerrors.CodeDependency, fmt.Sprintf("commerce backend returned status %d", status)
	}
}

// errorMessage pulls a human message out of the common error body shapes.
func errorMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		return msg
	}
	if len(body.Error) == 0 {
		return ""
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
		return strings.TrimSpace(nested.Message)
	}
	var plain string
	if err := json.Unmarshal(body.Error, &plain); err == nil {
		return strings.TrimSpace(plain)
	}
	return ""
}
