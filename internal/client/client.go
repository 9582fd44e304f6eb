// Package client talks to the metric API over HTTP.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/alisaviation/metricboard/internal/models"
)

var ErrNotFound = errors.New("metric not found")

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// Unwrap lets errors.Is match ErrNotFound on 404 answers.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type Client struct {
	client *resty.Client
}

// New returns a client for the API rooted at baseURL. A bare host:port is
// treated as http.
func New(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetError(&apiErrorBody{})
	return &Client{client: client}
}

type apiErrorBody struct {
	Detail string `json:"detail"`
}

// Create stores metric and returns the stored row. A nil ID lets the server
// assign one.
func (c *Client) Create(ctx context.Context, metric models.Metric) (models.Metric, error) {
	var created models.Metric
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(metric).
		SetResult(&created).
		Post("/metrics/")
	if err := check(resp, err); err != nil {
		return models.Metric{}, err
	}
	return created, nil
}

func (c *Client) List(ctx context.Context, offset, limit uint64) ([]models.Metric, error) {
	var metrics []models.Metric
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.FormatUint(offset, 10)).
		SetQueryParam("limit", strconv.FormatUint(limit, 10)).
		SetResult(&metrics).
		Get("/metrics/")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (c *Client) Get(ctx context.Context, id int64) (models.Metric, error) {
	var metric models.Metric
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetResult(&metric).
		Get("/metrics/{id}")
	if err := check(resp, err); err != nil {
		return models.Metric{}, err
	}
	return metric, nil
}

// Update sends a partial update. Keys absent from fields are left untouched
// on the server; a nil icon value clears the icon.
func (c *Client) Update(ctx context.Context, id int64, fields map[string]any) (models.Metric, error) {
	var metric models.Metric
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		SetBody(fields).
		SetResult(&metric).
		Put("/metrics/{id}")
	if err := check(resp, err); err != nil {
		return models.Metric{}, err
	}
	return metric, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Delete("/metrics/{id}")
	return check(resp, err)
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*apiErrorBody); ok && body != nil {
		apiErr.Detail = body.Detail
	}
	if apiErr.Detail == "" {
		apiErr.Detail = resp.Status()
	}
	return apiErr
}
