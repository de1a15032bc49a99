package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"floodrisk/monitoring"
	"floodrisk/survey"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	barMaxWidth = 300
	barHeight   = 28
	barGap      = 12
)

type pageRenderer struct {
	index *template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	index, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &pageRenderer{index: index}, nil
}

type pageView struct {
	Form           FormInput
	Questions      []survey.Question
	Provinces      []string
	Municipalities []string
	Locations      map[string][]survey.Location
	MapCenter      survey.Coordinates
	MapZoom        int
	ChartHeight    int
	Result         *resultView
}

type resultView struct {
	Label       string
	Banner      string
	BannerClass string
	Bars        []barView
	Marker      *survey.Marker
	Error       string
}

type barView struct {
	Label   string
	Percent float64
	Color   string
	Width   float64
	Y       int
	TextY   int
}

func buildPageView(form FormInput, result *Result) pageView {
	municipalities, _ := survey.Municipalities(form.Province)
	view := pageView{
		Form:           form,
		Questions:      survey.Questions(),
		Provinces:      survey.Provinces(),
		Municipalities: municipalities,
		Locations:      survey.Locations(),
		MapCenter:      survey.MapCenter,
		MapZoom:        survey.MapZoom,
		ChartHeight:    len(survey.RiskLevels) * (barHeight + barGap),
	}
	if result != nil {
		view.Result = buildResultView(result)
	}
	return view
}

// buildResultView lays the chart out in Low, Medium, High order regardless
// of the model's class order.
func buildResultView(result *Result) *resultView {
	if result.Error != "" {
		return &resultView{Error: result.Error}
	}
	byLabel := make(map[string]float64, len(result.Probabilities))
	for _, p := range result.Probabilities {
		byLabel[p.Label] = p.Probability
	}
	view := &resultView{
		Label:       result.Label,
		Banner:      strings.ToUpper(result.Label) + " FLOOD RISK",
		BannerClass: survey.BannerClass(result.Label),
		Marker:      result.Marker,
	}
	for i, level := range survey.RiskLevels {
		p := byLabel[level]
		y := i * (barHeight + barGap)
		view.Bars = append(view.Bars, barView{
			Label:   level,
			Percent: p * 100,
			Color:   survey.BarColor(level),
			Width:   p * barMaxWidth,
			Y:       y,
			TextY:   y + barHeight/2 + 5,
		})
	}
	return view
}

func (p *pageRenderer) render(w http.ResponseWriter, view pageView) error {
	var buf bytes.Buffer
	if err := p.index.Execute(&buf, view); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Load(w, r)
	form, last := session.Snapshot()
	if err := s.page.render(w, buildPageView(form, last)); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// handleFormPredict stores the outcome in the session and redirects back to
// the form, so a reload does not resubmit.
func (s *Server) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Load(w, r)
	if err := r.ParseForm(); err != nil {
		s.metrics.ObserveError(monitoring.ReasonBadRequest)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	form, err := parseForm(r.PostForm)
	if err != nil {
		s.metrics.ObserveError(monitoring.ReasonBadRequest)
		session.Record(form, &Result{Error: err.Error()})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	prediction, marker, err := s.predict(form, "form")
	if err != nil {
		s.logger.Info("form prediction rejected", zap.Error(err), zap.String("session", session.ID))
		session.Record(form, &Result{Error: err.Error()})
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	session.Record(form, &Result{
		Label:         prediction.Label,
		Probabilities: prediction.Probabilities,
		Marker:        marker,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseForm reads the submitted fields. Numeric fields are only parsed in
// numeric mode; an empty field counts as zero.
func parseForm(values url.Values) (FormInput, error) {
	form := FormInput{
		Mode: values.Get("mode"),
		Survey: survey.Answers{
			Rainfall:   values.Get("rainfall"),
			River:      values.Get("river"),
			FloodProne: values.Get("flood_prone"),
			Drainage:   values.Get("drainage"),
		},
		Province:     values.Get("province"),
		Municipality: values.Get("municipality"),
	}
	if form.Mode == "" {
		form.Mode = ModeSurvey
	}
	if form.Mode == ModeSurvey && form.Survey == (survey.Answers{}) {
		form.Survey = survey.DefaultAnswers()
	}
	if form.Mode != ModeNumeric {
		return form, nil
	}

	var err error
	if form.Features.AvgRainfallMM, err = parseNumber(values, "avg_rainfall_mm"); err != nil {
		return form, err
	}
	if form.Features.RiverProximityKM, err = parseNumber(values, "river_proximity_km"); err != nil {
		return form, err
	}
	if form.Features.ElevationM, err = parseNumber(values, "elevation_m"); err != nil {
		return form, err
	}
	raw := strings.TrimSpace(values.Get("historical_flood_count"))
	if raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil {
			return form, fmt.Errorf("historical_flood_count: %q is not a whole number", raw)
		}
		form.Features.HistoricalFloodCount = count
	}
	return form, nil
}

func parseNumber(values url.Values, field string) (float64, error) {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", field, raw)
	}
	return v, nil
}
