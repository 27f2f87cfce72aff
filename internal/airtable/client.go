// Package airtable reads the agency's analytics tables over the Airtable
// REST API.
package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"portal/internal/obs"
	"portal/internal/utils/logger"
)

// TokenProvider supplies the bearer token for each outgoing request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed personal access token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("airtable token is empty")
	}
	return string(t), nil
}

// Limiter throttles calls per base.
type Limiter interface {
	Wait(ctx context.Context, key string) error
}

// Record is one Airtable row.
type Record struct {
	ID          string         `json:"id"`
	CreatedTime string         `json:"createdTime"`
	Fields      map[string]any `json:"fields"`
}

type SortField struct {
	Field     string
	Direction string // asc or desc
}

// ListOptions maps onto the list-records query parameters.
type ListOptions struct {
	View            string
	FilterByFormula string
	MaxRecords      int
	PageSize        int
	Sort            []SortField
	// SkipView ignores the client's default view.
	SkipView bool
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

// APIError is a non-2xx answer from Airtable.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("airtable: %d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("airtable: %d %s", e.Status, e.Type)
}

type Client struct {
	http    *resty.Client
	tokens  TokenProvider
	limiter Limiter
	view    string
	log     *logger.Logger
}

type Option func(*Client)

// WithLimiter throttles every request through l, keyed by base id.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithDefaultView sets the view used when ListOptions.View is empty.
func WithDefaultView(view string) Option {
	return func(c *Client) { c.view = view }
}

// WithRetries overrides the retry policy for 429 and 5xx answers.
func WithRetries(count int, wait time.Duration) Option {
	return func(c *Client) {
		c.http.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(wait * 5)
	}
}

func NewClient(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:   httpClient,
		tokens: tokens,
		log:    logger.New("airtable"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches every record of table, following pagination offsets until
// MaxRecords is reached or the table is exhausted.
func (c *Client) List(ctx context.Context, baseID, table string, opts ListOptions) ([]Record, error) {
	var records []Record
	offset := ""
	for {
		page, err := c.page(ctx, baseID, table, opts, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if opts.MaxRecords > 0 && len(records) >= opts.MaxRecords {
			return records[:opts.MaxRecords], nil
		}
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

func (c *Client) page(ctx context.Context, baseID, table string, opts ListOptions, offset string) (*listResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, baseID); err != nil {
			return nil, fmt.Errorf("airtable rate limit: %w", err)
		}
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var out listResponse
	var apiErr errorBody
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParams(map[string]string{"base": baseID, "table": table}).
		SetQueryParamsFromValues(c.query(opts, offset)).
		SetResult(&out).
		SetError(&apiErr).
		Get("/{base}/{table}")

	status := "error"
	if resp != nil && resp.StatusCode() != 0 {
		status = strconv.Itoa(resp.StatusCode())
	}
	obs.AirtableRequests.WithLabelValues(table, status).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, c.log.Error("Airtable request to "+table+" failed", err)
	}
	if resp.IsError() {
		e := apiErr.toAPIError(resp.StatusCode())
		c.log.Warn("Airtable returned %d for %s: %s", resp.StatusCode(), table, e.Message)
		return nil, e
	}
	return &out, nil
}

func (c *Client) query(opts ListOptions, offset string) url.Values {
	q := url.Values{}
	view := opts.View
	if view == "" && !opts.SkipView {
		view = c.view
	}
	if view != "" {
		q.Set("view", view)
	}
	if opts.FilterByFormula != "" {
		q.Set("filterByFormula", opts.FilterByFormula)
	}
	if opts.MaxRecords > 0 {
		q.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	for i, s := range opts.Sort {
		q.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
		if s.Direction != "" {
			q.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
		}
	}
	if offset != "" {
		q.Set("offset", offset)
	}
	return q
}

// errorBody accepts both {"error":"NOT_FOUND"} and
// {"error":{"type":"...","message":"..."}}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

func (b errorBody) toAPIError(status int) *APIError {
	e := &APIError{Status: status}
	var typed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b.Error, &typed); err == nil {
		e.Type, e.Message = typed.Type, typed.Message
		return e
	}
	var plain string
	if err := json.Unmarshal(b.Error, &plain); err == nil {
		e.Type = plain
	}
	return e
}
