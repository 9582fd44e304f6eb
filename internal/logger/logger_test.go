package logger

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alisaviation/metricboard/internal/config"
)

func restoreLog(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })
}

func TestInitializeInvalidLevel(t *testing.T) {
	restoreLog(t)
	require.Error(t, Initialize(config.Logging{LogLevel: "loud"}))
}

func TestInitializeLogFile(t *testing.T) {
	for _, rotate := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "rotated"}[rotate], func(t *testing.T) {
			restoreLog(t)
			path := filepath.Join(t.TempDir(), "metricboard.log")

			require.NoError(t, Initialize(config.Logging{
				LogLevel:      "info",
				LogFile:       path,
				LogFileRotate: rotate,
				LogFileSize:   1,
			}))
			Log.Debug("hidden message")
			Log.Info("seed loaded", zap.Int("count", 3))
			_ = Log.Sync()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), "seed loaded")
			assert.Contains(t, string(data), `"count":3`)
			assert.NotContains(t, string(data), "hidden message")
		})
	}
}

func TestRequestResponseLogger(t *testing.T) {
	restoreLog(t)
	core, logs := observer.New(zapcore.InfoLevel)
	Log = zap.New(core)

	handler := RequestResponseLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Metric not found"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics/7?x=1", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("HTTP request handled").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/metrics/7", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.EqualValues(t, http.StatusNotFound, fields["status"])
	assert.EqualValues(t, len(`{"detail":"Metric not found"}`), fields["size"])
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec}
	_, err := ww.Write([]byte("ok"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ww.statusCode)
	assert.Equal(t, 2, ww.size)
}
