package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alisaviation/metricboard/internal/config"
)

var Log *zap.Logger = zap.NewNop()

// Initialize replaces Log with a production logger writing to stderr and,
// when configured, to a log file.
func Initialize(opts config.Logging) error {
	lvl, err := zap.ParseAtomicLevel(opts.LogLevel)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	if opts.LogFile != "" {
		fileCore, err := newFileCore(opts, lvl)
		if err != nil {
			return err
		}
		zl = zl.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	Log = zl
	return nil
}

func newFileCore(opts config.Logging, lvl zap.AtomicLevel) (zapcore.Core, error) {
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	if opts.LogFileRotate {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    opts.LogFileSize,
			MaxBackups: opts.LogFileNumber,
			MaxAge:     opts.LogFileAge,
		})
		return zapcore.NewCore(encoder, w, lvl), nil
	}
	w, _, err := zap.Open(opts.LogFile)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(encoder, w, lvl), nil
}

func RequestResponseLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(ww, r)

		Log.Info("HTTP request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.String("origin", r.Header.Get("Origin")),
			zap.Int("status", ww.statusCode),
			zap.Int("size", ww.size),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.statusCode == 0 {
		rw.statusCode = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}
