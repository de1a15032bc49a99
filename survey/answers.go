// Package survey maps the household survey answers of the flood-risk form
// onto the numeric proxies the classifier was trained on, and holds the
// municipality table used for the result map.
package survey

import (
	"errors"
	"fmt"

	"floodrisk/ml"
)

var ErrUnknownAnswer = errors.New("unknown survey answer")

// Option is one allowed answer and the feature value it stands for.
type Option struct {
	Answer string  `json:"answer"`
	Value  float64 `json:"value"`
}

// Question is an enumerated lookup from a fixed answer set to one feature.
type Question struct {
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Feature string   `json:"feature"`
	Options []Option `json:"options"`
}

// Value returns the proxy for answer, rejecting anything outside Options.
func (q Question) Value(answer string) (float64, error) {
	for _, option := range q.Options {
		if option.Answer == answer {
			return option.Value, nil
		}
	}
	return 0, fmt.Errorf("%w: %s=%q", ErrUnknownAnswer, q.Key, answer)
}

// Answers returns the allowed answers in display order.
func (q Question) Answers() []string {
	answers := make([]string, len(q.Options))
	for i, option := range q.Options {
		answers[i] = option.Answer
	}
	return answers
}

var (
	rainfall = Question{
		Key:     "rainfall",
		Prompt:  "Has it been raining recently?",
		Feature: ml.ColumnRainfall,
		Options: []Option{
			{"No rain", 0},
			{"Light rain", 20},
			{"Moderate rain", 50},
			{"Heavy rain", 100},
			{"Continuous rain", 150},
		},
	}
	river = Question{
		Key:     "river",
		Prompt:  "River or canal condition",
		Feature: ml.ColumnRiver,
		Options: []Option{
			{"Normal", 5.0},
			{"Slightly rising", 3.0},
			{"High", 2.0},
			{"Near overflowing", 1.0},
			{"Overflowing", 0.5},
		},
	}
	floodProne = Question{
		Key:     "flood_prone",
		Prompt:  "Is your area flood-prone?",
		Feature: ml.ColumnFloodCount,
		Options: []Option{
			{"Not flood-prone", 0},
			{"Sometimes floods", 2},
			{"Often floods", 5},
			{"Always floods", 10},
		},
	}
	// Drainage stands in for elevation: well-drained ground is treated as high.
	drainage = Question{
		Key:     "drainage",
		Prompt:  "Drainage condition",
		Feature: ml.ColumnElevation,
		Options: []Option{
			{"Good", 50},
			{"Slow", 30},
			{"Clogged", 10},
			{"Don't know", 25},
		},
	}
)

// Questions lists the survey in form order.
func Questions() []Question {
	return []Question{rainfall, river, floodProne, drainage}
}

// Answers holds one respondent's choices.
type Answers struct {
	Rainfall   string `json:"rainfall" validate:"required"`
	River      string `json:"river" validate:"required"`
	FloodProne string `json:"flood_prone" validate:"required"`
	Drainage   string `json:"drainage" validate:"required"`
}

// DefaultAnswers is the form's initial selection, the first option of each question.
func DefaultAnswers() Answers {
	return Answers{
		Rainfall:   rainfall.Options[0].Answer,
		River:      river.Options[0].Answer,
		FloodProne: floodProne.Options[0].Answer,
		Drainage:   drainage.Options[0].Answer,
	}
}

// Get returns the answer recorded for the question with the given key.
func (a Answers) Get(key string) string {
	switch key {
	case rainfall.Key:
		return a.Rainfall
	case river.Key:
		return a.River
	case floodProne.Key:
		return a.FloodProne
	case drainage.Key:
		return a.Drainage
	}
	return ""
}

// Sample converts the answers into classifier inputs for province.
func (a Answers) Sample(province string) (ml.Sample, error) {
	rain, err := rainfall.Value(a.Rainfall)
	if err != nil {
		return ml.Sample{}, err
	}
	distance, err := river.Value(a.River)
	if err != nil {
		return ml.Sample{}, err
	}
	floods, err := floodProne.Value(a.FloodProne)
	if err != nil {
		return ml.Sample{}, err
	}
	elevation, err := drainage.Value(a.Drainage)
	if err != nil {
		return ml.Sample{}, err
	}
	return ml.Sample{
		AvgRainfallMM:        rain,
		RiverProximityKM:     distance,
		ElevationM:           elevation,
		HistoricalFloodCount: int(floods),
		Province:             province,
	}, nil
}
