package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/models"
	"github.com/alisaviation/metricboard/internal/storage"
)

// SessionHandler is a handler that runs with a store session bound to the request.
type SessionHandler func(w http.ResponseWriter, r *http.Request, sess storage.Session)

// scoped acquires a session for the duration of the request. The session is
// released on every exit path, including panics recovered further up.
func (s *Server) scoped(h SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Storage.Session(r.Context())
		if err != nil {
			logger.Log.Error("Error acquiring store session", zap.Error(err))
			writeInternalError(w)
			return
		}
		defer func() {
			if err := sess.Close(); err != nil {
				logger.Log.Warn("Error releasing store session", zap.Error(err))
			}
		}()
		h(w, r, sess)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("Error marshaling JSON", zap.Error(err))
		writeInternalError(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	data, _ := json.Marshal(errorResponse{Detail: detail})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func writeValidationError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusUnprocessableEntity, vErr.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, err.Error())
}

func parseInt(raw, field string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &models.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

func queryUint(r *http.Request, field string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(field)
	if raw == "" {
		return def, nil
	}
	n, err := parseInt(raw, field)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &models.ValidationError{Field: field, Reason: "must be greater than or equal to 0"}
	}
	return uint64(n), nil
}
