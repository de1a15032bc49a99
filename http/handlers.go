package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"floodrisk/ml"
	"floodrisk/survey"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type modelInfo struct {
	FeatureNames []string       `json:"feature_names"`
	Labels       []string       `json:"labels"`
	Provinces    []string       `json:"provinces"`
	Encoding     string         `json:"encoding"`
	Trees        int            `json:"trees"`
	Seed         int64          `json:"seed"`
	TrainedAt    time.Time      `json:"trained_at"`
	DataPoints   int            `json:"data_points"`
	Evaluation   *ml.Evaluation `json:"evaluation,omitempty"`
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, modelInfo{
		FeatureNames: s.model.FeatureNames,
		Labels:       s.model.Encoder.Labels.Names,
		Provinces:    s.model.Encoder.Provinces.Names,
		Encoding:     s.model.Encoding,
		Trees:        len(s.model.Forest.Trees),
		Seed:         s.model.Forest.Seed,
		TrainedAt:    s.model.TrainedAt,
		DataPoints:   s.model.DataPoints,
		Evaluation:   s.model.Evaluation,
	})
}

func handleLocations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"provinces": survey.Provinces(),
		"locations": survey.Locations(),
		"center":    survey.MapCenter,
		"zoom":      survey.MapZoom,
	})
}

func handleSurvey(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questions": survey.Questions(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	records, err := s.store.RecentPredictions(limit)
	if err != nil {
		s.logger.Error("load predictions", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load predictions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func (s *Server) handleTrainingLog(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.LoadTrainingLog()
	if err != nil {
		s.logger.Error("load training log", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load training log")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": logs})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
