// Package api is a typed client for the food-inventory backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryan-buckman/pantry/internal/model"
)

// DefaultTimeout bounds a single request when no HTTP client is supplied.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is read into an APIError.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BackendStatus is the root endpoint's response.
type BackendStatus struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Status checks that the backend is running.
func (c *Client) Status(ctx context.Context) (*BackendStatus, error) {
	var out BackendStatus
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Food items ---

// ListItems returns inventory items. An empty or "all" filter lists everything.
func (c *Client) ListItems(ctx context.Context, filter string) ([]model.FoodItem, error) {
	path := "/api/food-items"
	if filter != "" && filter != model.FilterAll {
		path += "?filter=" + url.QueryEscape(filter)
	}
	var items []model.FoodItem
	if err := c.do(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches one item.
func (c *Client) GetItem(ctx context.Context, id string) (*model.FoodItem, error) {
	var item model.FoodItem
	if err := c.do(ctx, http.MethodGet, "/api/food-items/"+url.PathEscape(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateItem adds an item; the backend fills in category, dates and emoji.
func (c *Client) CreateItem(ctx context.Context, in model.NewFoodItem) (*model.FoodItem, error) {
	var item model.FoodItem
	if err := c.do(ctx, http.MethodPost, "/api/food-items", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem applies a partial update and returns the stored item.
func (c *Client) UpdateItem(ctx context.Context, id string, upd model.ItemUpdate) (*model.FoodItem, error) {
	var item model.FoodItem
	if err := c.do(ctx, http.MethodPut, "/api/food-items/"+url.PathEscape(id), upd, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem removes an item and its events and notifications.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/food-items/"+url.PathEscape(id), nil, nil)
}

// AIUpdate asks the backend to interpret a natural-language instruction.
// The returned fields are not applied.
func (c *Client) AIUpdate(ctx context.Context, id, instruction string) (*model.AIUpdateResult, error) {
	body := map[string]string{"instruction": instruction}
	var out model.AIUpdateResult
	if err := c.do(ctx, http.MethodPost, "/api/food-items/"+url.PathEscape(id)+"/ai-update", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Notifications ---

// ListNotifications returns all notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := c.do(ctx, http.MethodGet, "/api/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/notifications/unread", nil, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

// MarkNotificationRead flags a notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/api/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// --- Calendar, dashboard, meals ---

// ListCalendarEvents returns calendar events ordered by date.
func (c *Client) ListCalendarEvents(ctx context.Context) ([]model.CalendarEvent, error) {
	var out []model.CalendarEvent
	if err := c.do(ctx, http.MethodGet, "/api/calendar-events", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DashboardStats returns aggregate inventory counts.
func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var out model.DashboardStats
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestMeals requests recipe suggestions from on-hand inventory.
func (c *Client) SuggestMeals(ctx context.Context, req model.MealRequest) (*model.MealSuggestions, error) {
	var out model.MealSuggestions
	if err := c.do(ctx, http.MethodPost, "/api/meal-suggestions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Transport ---

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			apiErr.Detail = s
		} else {
			// Validation errors arrive as a list of objects.
			apiErr.Detail = string(payload.Detail)
		}
	} else {
		apiErr.Detail = strings.TrimSpace(string(data))
	}
	return apiErr
}
