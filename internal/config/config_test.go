package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerDefaults(t *testing.T) {
	opts, err := ParseServer(nil, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, ":8000", opts.Server.Address)
	assert.Equal(t, DefaultSeedFile, opts.Server.SeedFile)
	assert.False(t, opts.Server.NoSeed)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, opts.Server.CORSOrigins)
	assert.Contains(t, opts.Server.CORSHeaders, "Content-Type")
	assert.Equal(t, "/debug/prometheus", opts.Server.PrometheusPath)
	assert.Equal(t, 10*time.Second, opts.Server.ShutdownTimeout)
	assert.Equal(t, "metrics.db", opts.Database.DSN)
	assert.Equal(t, "info", opts.Logging.LogLevel)
	assert.Equal(t, 100, opts.Logging.LogFileSize)
}

func TestParseServerArgs(t *testing.T) {
	opts, err := ParseServer([]string{
		"-a", "127.0.0.1:9000",
		"--database", "memory",
		"--cors-origin", "*",
		"--no-seed",
		"--log-level", "debug",
		"--prometheus-path=",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", opts.Server.Address)
	assert.Equal(t, "memory", opts.Database.DSN)
	assert.Equal(t, []string{"*"}, opts.Server.CORSOrigins)
	assert.True(t, opts.Server.NoSeed)
	assert.Equal(t, "debug", opts.Logging.LogLevel)
	assert.Empty(t, opts.Server.PrometheusPath)
}

func TestParseServerEnv(t *testing.T) {
	t.Setenv("METRICBOARD_ADDRESS", ":7000")
	t.Setenv("METRICBOARD_DATABASE", "postgres://localhost/metrics")
	t.Setenv("METRICBOARD_CORS_ORIGINS", "https://a.example,https://b.example")

	opts, err := ParseServer(nil, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, ":7000", opts.Server.Address)
	assert.Equal(t, "postgres://localhost/metrics", opts.Database.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, opts.Server.CORSOrigins)
}

func TestParseServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "help", args: []string{"--help"}, wantErr: ErrHelp},
		{name: "unknown flag", args: []string{"--bogus"}},
		{name: "bad log level", args: []string{"--log-level", "verbose"}},
		{name: "extra argument", args: []string{"serve"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := ParseServer(tt.args, &out)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, out.String(), "--address")
			}
		})
	}
}
