package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alisaviation/metricboard/internal/models"
	"github.com/alisaviation/metricboard/internal/server"
	"github.com/alisaviation/metricboard/internal/storage"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	router := server.New(storage.NewMemStorage()).NewRouter(server.RouterOptions{
		Registry: prometheus.NewRegistry(),
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestClientCRUD(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	revenue := models.NewMetric("Revenue", "1000")
	revenue.MetricType = models.Currency
	created, err := c.Create(ctx, revenue)
	require.NoError(t, err)
	require.NotNil(t, created.ID)
	assert.EqualValues(t, 1, *created.ID)
	assert.Equal(t, "blue", created.Color)
	assert.Nil(t, created.Icon)

	got, err := c.Get(ctx, *created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := c.Update(ctx, *created.ID, map[string]any{"value": "1500", "icon": "dollar"})
	require.NoError(t, err)
	assert.Equal(t, "1500", updated.Value)
	assert.Equal(t, "Revenue", updated.Name)
	require.NotNil(t, updated.Icon)
	assert.Equal(t, "dollar", *updated.Icon)

	cleared, err := c.Update(ctx, *created.ID, map[string]any{"icon": nil})
	require.NoError(t, err)
	assert.Nil(t, cleared.Icon)

	list, err := c.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.Delete(ctx, *created.ID))

	_, err = c.Get(ctx, *created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	err = c.Delete(ctx, *created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientListWindow(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, name := range []string{"a", "b", "c"} {
		_, err := c.Create(ctx, models.NewMetric(name, "0"))
		require.NoError(t, err)
	}

	all, err := c.List(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rest, err := c.List(ctx, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Update(ctx, 1, map[string]any{"value": "1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Metric not found", apiErr.Detail)

	_, err = c.Create(ctx, models.NewMetric("a", "1"))
	require.NoError(t, err)
	_, err = c.Update(ctx, 1, map[string]any{"name": nil})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewAddsScheme(t *testing.T) {
	c := New("localhost:8000/")
	assert.Equal(t, "http://localhost:8000", c.client.BaseURL)
}
