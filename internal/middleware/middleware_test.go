package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func TestGzipMiddleware(t *testing.T) {
	payload := `{"name":"Revenue","value":"1000"}`

	t.Run("gzip request", func(t *testing.T) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, err := gz.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, gz.Close())

		req := httptest.NewRequest(http.MethodPost, "/metrics/", &buf)
		req.Header.Set("Content-Encoding", "gzip")
		w := httptest.NewRecorder()

		GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, payload, w.Body.String())
		assert.Empty(t, w.Header().Get("Content-Encoding"))
	})

	t.Run("gzip response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/metrics/", strings.NewReader(payload))
		req.Header.Set("Accept-Encoding", "gzip")
		w := httptest.NewRecorder()

		GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

		resp := w.Result()
		defer resp.Body.Close()
		require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))

		gz, err := gzip.NewReader(resp.Body)
		require.NoError(t, err)
		defer gz.Close()
		body, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))
	})

	t.Run("invalid gzip request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/metrics/", strings.NewReader("not gzip"))
		req.Header.Set("Content-Encoding", "gzip")
		w := httptest.NewRecorder()

		GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		opts            CORSOptions
		method          string
		origin          string
		requestMethod   string
		requestHeaders  string
		wantStatus      int
		wantAllowOrigin string
		wantCredentials string
	}{
		{
			name:            "listed origin",
			opts:            CORSOptions{Origins: []string{"http://localhost:5173"}, AllowCredentials: true},
			method:          http.MethodGet,
			origin:          "http://localhost:5173",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "http://localhost:5173",
			wantCredentials: "true",
		},
		{
			name:       "unlisted origin",
			opts:       CORSOptions{Origins: []string{"http://localhost:5173"}, AllowCredentials: true},
			method:     http.MethodGet,
			origin:     "http://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:            "wildcard echoes origin",
			opts:            CORSOptions{Origins: []string{"*"}, AllowCredentials: true},
			method:          http.MethodGet,
			origin:          "http://dashboard.example",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "http://dashboard.example",
			wantCredentials: "true",
		},
		{
			name:            "preflight for delete",
			opts:            CORSOptions{Origins: []string{"*"}, Headers: []string{"Content-Type"}},
			method:          http.MethodOptions,
			origin:          "http://localhost:3000",
			requestMethod:   http.MethodDelete,
			requestHeaders:  "Content-Type",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "http://localhost:3000",
		},
		{
			name:       "no origin header",
			opts:       CORSOptions{Origins: []string{"*"}},
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/metrics/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.requestMethod != "" {
				req.Header.Set("Access-Control-Request-Method", tt.requestMethod)
			}
			if tt.requestHeaders != "" {
				req.Header.Set("Access-Control-Request-Headers", tt.requestHeaders)
			}
			w := httptest.NewRecorder()

			CORS(tt.opts)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}

func TestInstrument(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := chi.NewRouter()
	r.Use(Instrument(reg))
	r.Get("/metrics/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics/"+id, nil))
	}

	expected := `
		# HELP metricboard_http_requests_total Number of HTTP requests by route, method and status.
		# TYPE metricboard_http_requests_total counter
		metricboard_http_requests_total{method="GET",route="/metrics/{id}",status="404"} 2
	`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "metricboard_http_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "metricboard_http_request_duration_seconds"))
}
