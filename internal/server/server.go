package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/models"
	"github.com/alisaviation/metricboard/internal/storage"
)

const (
	defaultOffset = 0
	defaultLimit  = 100
)

type Server struct {
	Storage storage.Storage
}

func New(store storage.Storage) *Server {
	return &Server{Storage: store}
}

func (s *Server) CreateMetric(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request: could not read body")
		return
	}
	metric, err := models.DecodeMetric(body)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	created, err := sess.Create(r.Context(), metric)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateID) {
			logger.Log.Error("Duplicate metric id", zap.Int64p("id", metric.ID), zap.Error(err))
		} else {
			logger.Log.Error("Error creating metric", zap.Error(err))
		}
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) ListMetrics(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	offset, err := queryUint(r, "offset", defaultOffset)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	limit, err := queryUint(r, "limit", defaultLimit)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	metrics, err := sess.List(r.Context(), offset, limit)
	if err != nil {
		logger.Log.Error("Error listing metrics", zap.Error(err))
		writeInternalError(w)
		return
	}
	if metrics == nil {
		metrics = []models.Metric{}
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) GetMetric(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	id, err := pathID(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	metric, err := sess.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err, "Error reading metric")
		return
	}
	writeJSON(w, http.StatusOK, metric)
}

func (s *Server) UpdateMetric(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	id, err := pathID(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request: could not read body")
		return
	}
	patch, err := models.DecodePatch(body)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	updated, err := sess.Update(r.Context(), id, patch)
	if err != nil {
		s.writeStoreError(w, err, "Error updating metric")
		return
	}
	logger.Log.Debug("Metric updated", zap.Int64("id", id), zap.Strings("fields", patch.Fields()))
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) DeleteMetric(w http.ResponseWriter, r *http.Request, sess storage.Session) {
	id, err := pathID(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	if err := sess.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, err, "Error deleting metric")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Metric not found")
		return
	}
	logger.Log.Error(msg, zap.Error(err))
	writeInternalError(w)
}

func pathID(r *http.Request) (int64, error) {
	return parseInt(chi.URLParam(r, "id"), "id")
}
