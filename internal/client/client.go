// Package client is a typed client for the zwiggato HTTP API.
//
// Transport failures are reported as failure.Network. Error responses from
// the server are decoded from their {"error", "field"} body and classified:
// 400 as failure.Validation, 404 as failure.NotFound, 5xx as failure.Storage.
// Nothing is retried.
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
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/zwiggato/internal/cart"
	"github.com/roach88/zwiggato/internal/catalog"
	"github.com/roach88/zwiggato/internal/failure"
	"github.com/roach88/zwiggato/internal/order"
)

// ErrSubmissionInFlight is returned by Checkout while another checkout on
// the same client has not finished.
var ErrSubmissionInFlight = errors.New("an order submission is already in flight")

// ErrEmptyCart is returned by Checkout for a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Field      string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api: %d %s (field=%s)", e.StatusCode, e.Message, e.Field)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Options configure a Client.
type Options struct {
	// HTTPClient defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// SessionCookie and Session are sent as a cookie on every request when
	// both are set.
	SessionCookie string
	Session       string

	Logger *slog.Logger
}

// Client talks to one API base URL.
type Client struct {
	base          *url.URL
	http          *http.Client
	sessionCookie string
	session       string
	logger        *slog.Logger

	submitting atomic.Bool
}

// New creates a client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:          u,
		http:          opts.HTTPClient,
		sessionCookie: opts.SessionCookie,
		session:       opts.Session,
		logger:        opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Restaurants lists the catalog restaurants.
func (c *Client) Restaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	var out []catalog.Restaurant
	if err := c.do(ctx, http.MethodGet, "/restaurants", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Menu lists the menu items of one restaurant. An unknown id yields an
// empty slice.
func (c *Client) Menu(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error) {
	var out []catalog.MenuItem
	path := "/restaurants/" + strconv.FormatInt(restaurantID, 10) + "/menu"
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Orders lists past orders newest first.
func (c *Client) Orders(ctx context.Context) ([]order.Order, error) {
	var out []order.Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Order fetches one order.
func (c *Client) Order(ctx context.Context, id int64) (order.Order, error) {
	var out order.Order
	path := "/orders/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return order.Order{}, err
	}
	return out, nil
}

// PlaceOrder submits an order and returns the created record.
func (c *Client) PlaceOrder(ctx context.Context, sub order.Submission) (order.Order, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return order.Order{}, fmt.Errorf("encode order: %w", err)
	}
	var out order.Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, http.StatusCreated, &out); err != nil {
		return order.Order{}, err
	}
	return out, nil
}

// Checkout submits the cart. Only one checkout per client runs at a time;
// a concurrent call returns ErrSubmissionInFlight without sending anything.
// The submitted quantities leave the cart only after the server confirms
// the order; lines added meanwhile are kept. On any failure the cart is left
// as it was.
func (c *Client) Checkout(ctx context.Context, ct *cart.Cart) (order.Order, error) {
	if !c.submitting.CompareAndSwap(false, true) {
		return order.Order{}, ErrSubmissionInFlight
	}
	defer c.submitting.Store(false)

	if ct.IsEmpty() {
		return order.Order{}, ErrEmptyCart
	}

	sub := ct.Submission()
	created, err := c.PlaceOrder(ctx, sub)
	if err != nil {
		return order.Order{}, err
	}
	if err := ct.Settle(sub.Items); err != nil {
		// The order exists; report it alongside the local failure.
		return created, fmt.Errorf("order %d placed but cart not settled: %w", created.ID, err)
	}
	return created, nil
}

// Submitting reports whether a checkout is in flight.
func (c *Client) Submitting() bool {
	return c.submitting.Load()
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, want int, out any) error {
	u := c.base.JoinPath(path)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	if c.sessionCookie != "" && c.session != "" {
		req.AddCookie(&http.Cookie{Name: c.sessionCookie, Value: c.session})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return failure.Network("unable to reach the server", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure.Network("connection lost while reading the response", err)
	}
	c.logger.Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if resp.StatusCode != want {
		return classify(decodeAPIError(resp.StatusCode, data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) *APIError {
	var body struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	apiErr := &APIError{StatusCode: status}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Field = body.Field
	} else {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func classify(apiErr *APIError) error {
	var code failure.Code
	switch {
	case apiErr.StatusCode == http.StatusBadRequest:
		code = failure.CodeValidation
	case apiErr.StatusCode == http.StatusNotFound:
		code = failure.CodeNotFound
	case apiErr.StatusCode >= 500:
		code = failure.CodeStorage
	default:
		return apiErr
	}
	return &failure.Error{
		Code:    code,
		Field:   apiErr.Field,
		Message: apiErr.Message,
		Err:     apiErr,
	}
}
