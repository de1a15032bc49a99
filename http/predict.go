package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"floodrisk/db"
	"floodrisk/ml"
	"floodrisk/monitoring"
	"floodrisk/survey"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NumericFeatures are raw measurements entered directly.
type NumericFeatures struct {
	AvgRainfallMM        float64 `json:"avg_rainfall_mm" validate:"gte=0"`
	RiverProximityKM     float64 `json:"river_proximity_km" validate:"gte=0"`
	ElevationM           float64 `json:"elevation_m" validate:"gte=0"`
	HistoricalFloodCount int     `json:"historical_flood_count" validate:"gte=0"`
}

// PredictRequest is the body of POST /api/predict. Exactly one of Features
// or Survey is read, chosen by Mode.
type PredictRequest struct {
	Mode         string           `json:"mode" validate:"required,oneof=numeric survey"`
	Features     *NumericFeatures `json:"features" validate:"required_if=Mode numeric"`
	Survey       *survey.Answers  `json:"survey" validate:"required_if=Mode survey"`
	Province     string           `json:"province" validate:"required"`
	Municipality string           `json:"municipality"`
}

// PredictResponse is the classification result. Marker is nil unless a
// municipality was given.
type PredictResponse struct {
	Label         string                `json:"label"`
	ClassID       int                   `json:"class_id"`
	Probabilities []ml.ClassProbability `json:"probabilities"`
	Marker        *survey.Marker        `json:"marker"`
}

// requestError is a client mistake reported back as 400.
type requestError struct {
	reason string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

// classify maps input errors to their metric reason.
func classify(err error) error {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return err
	case errors.Is(err, ml.ErrUnknownCategory),
		errors.Is(err, survey.ErrUnknownAnswer),
		errors.Is(err, survey.ErrUnknownLocation):
		return &requestError{reason: monitoring.ReasonUnknown, err: err}
	case errors.Is(err, ml.ErrInvalidValue):
		return &requestError{reason: monitoring.ReasonInvalid, err: err}
	}
	return err
}

// sample turns a form or API input into classifier inputs.
func (f FormInput) sample() (ml.Sample, error) {
	if f.Municipality != "" {
		if err := survey.CheckLocation(f.Province, f.Municipality); err != nil {
			return ml.Sample{}, err
		}
	}
	switch f.Mode {
	case ModeSurvey:
		return f.Survey.Sample(f.Province)
	case ModeNumeric:
		s := f.Features
		s.Province = f.Province
		return s, nil
	}
	return ml.Sample{}, &requestError{reason: monitoring.ReasonBadRequest, err: errors.New("mode must be survey or numeric")}
}

func (req PredictRequest) form() FormInput {
	form := FormInput{Mode: req.Mode, Province: req.Province, Municipality: req.Municipality}
	if req.Survey != nil {
		form.Survey = *req.Survey
	}
	if req.Features != nil {
		form.Features = ml.Sample{
			AvgRainfallMM:        req.Features.AvgRainfallMM,
			RiverProximityKM:     req.Features.RiverProximityKM,
			ElevationM:           req.Features.ElevationM,
			HistoricalFloodCount: req.Features.HistoricalFloodCount,
		}
	}
	return form
}

// predict classifies one input and records it. source is "form" or "api".
func (s *Server) predict(form FormInput, source string) (*ml.Prediction, *survey.Marker, error) {
	started := time.Now()
	sample, err := form.sample()
	if err != nil {
		return nil, nil, s.failed(classify(err))
	}
	prediction, err := s.model.Predict(sample)
	if err != nil {
		return nil, nil, s.failed(classify(err))
	}
	s.metrics.ObservePrediction(prediction.Label, source, started)

	var marker *survey.Marker
	if form.Municipality != "" {
		marker = survey.MarkerFor(form.Municipality, prediction.Label)
	}
	s.record(form, sample, prediction, source)
	return prediction, marker, nil
}

func (s *Server) failed(err error) error {
	var re *requestError
	if errors.As(err, &re) {
		s.metrics.ObserveError(re.reason)
	} else {
		s.metrics.ObserveError(monitoring.ReasonInternal)
	}
	return err
}

func (s *Server) record(form FormInput, sample ml.Sample, prediction *ml.Prediction, source string) {
	if s.store == nil {
		return
	}
	probabilities := make(map[string]float64, len(prediction.Probabilities))
	for _, p := range prediction.Probabilities {
		probabilities[p.Label] = p.Probability
	}
	err := s.store.SavePrediction(db.PredictionRecord{
		Province:             sample.Province,
		Municipality:         form.Municipality,
		AvgRainfallMM:        sample.AvgRainfallMM,
		RiverProximityKM:     sample.RiverProximityKM,
		ElevationM:           sample.ElevationM,
		HistoricalFloodCount: sample.HistoricalFloodCount,
		Label:                prediction.Label,
		ClassID:              prediction.ClassID,
		Probabilities:        probabilities,
		Source:               source,
	})
	if err != nil {
		s.logger.Warn("save prediction", zap.Error(err))
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.ObserveError(monitoring.ReasonBadRequest)
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.metrics.ObserveError(monitoring.ReasonBadRequest)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	prediction, marker, err := s.predict(req.form(), "api")
	if err != nil {
		var re *requestError
		if errors.As(err, &re) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("predict", zap.Error(err), zap.String("request_id", GetRequestID(r.Context())))
		respondError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		Label:         prediction.Label,
		ClassID:       prediction.ClassID,
		Probabilities: prediction.Probabilities,
		Marker:        marker,
	})
}
