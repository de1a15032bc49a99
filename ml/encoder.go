package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownCategory is returned for a province or risk level that has no id
// in the encoder's tables.
var ErrUnknownCategory = errors.New("unknown category")

// RiskLevels is the closed set of Flood_Risk_Level values, least severe first.
var RiskLevels = []string{"Low", "Medium", "High"}

// CheckRiskLevel rejects any label outside RiskLevels. Matching is exact.
func CheckRiskLevel(level string) error {
	for _, known := range RiskLevels {
		if level == known {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q", ErrUnknownCategory, ColumnRiskLevel, level)
}

// Category is an enumerated mapping between names and integer ids.
// Ids are the positions in Names.
type Category struct {
	Column string   `json:"column"`
	Names  []string `json:"names"`

	index map[string]int
}

// NewCategory builds a table in the given order. Duplicate names are rejected.
func NewCategory(column string, names []string) (*Category, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("category %s: no values", column)
	}
	c := &Category{Column: column, Names: append([]string(nil), names...)}
	if err := c.buildIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// FitCategory sorts the unique values found in values and assigns ids in that order.
func FitCategory(column string, values []string) (*Category, error) {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	sort.Strings(unique)
	return NewCategory(column, unique)
}

func (c *Category) buildIndex() error {
	c.index = make(map[string]int, len(c.Names))
	for i, name := range c.Names {
		if _, dup := c.index[name]; dup {
			return fmt.Errorf("category %s: duplicate value %q", c.Column, name)
		}
		c.index[name] = i
	}
	return nil
}

// UnmarshalJSON restores the lookup index along with the names.
func (c *Category) UnmarshalJSON(data []byte) error {
	type plain Category
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = Category(decoded)
	return c.buildIndex()
}

// ID returns the integer code for name.
func (c *Category) ID(name string) (int, error) {
	id, ok := c.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s=%q", ErrUnknownCategory, c.Column, name)
	}
	return id, nil
}

// Name returns the value encoded as id.
func (c *Category) Name(id int) (string, error) {
	if id < 0 || id >= len(c.Names) {
		return "", fmt.Errorf("%w: %s id %d", ErrUnknownCategory, c.Column, id)
	}
	return c.Names[id], nil
}

// Len is the number of values in the table.
func (c *Category) Len() int {
	return len(c.Names)
}

// Encoder owns the province and risk label tables used to turn a Sample
// into a feature vector. The same Encoder must be used at training and
// inference time, which is why it is persisted inside the Artifact.
type Encoder struct {
	Provinces *Category `json:"provinces"`
	Labels    *Category `json:"labels"`
}

// FixedEncoder returns the hand-maintained tables used by the survey form.
func FixedEncoder() *Encoder {
	provinces, _ := NewCategory(ColumnProvince, []string{
		"Bukidnon",
		"Misamis Oriental",
		"Misamis Occidental",
		"Lanao del Norte",
		"Camiguin",
	})
	labels, _ := NewCategory(ColumnRiskLevel, RiskLevels)
	return &Encoder{Provinces: provinces, Labels: labels}
}

// FitEncoder derives both tables from the dataset, sorting each column's
// distinct values. Every label must be one of RiskLevels.
func FitEncoder(rows []Row) (*Encoder, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}
	provinces := make([]string, len(rows))
	labels := make([]string, len(rows))
	for i, row := range rows {
		if err := CheckRiskLevel(row.RiskLevel); err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Line, err)
		}
		provinces[i] = row.Sample.Province
		labels[i] = row.RiskLevel
	}
	p, err := FitCategory(ColumnProvince, provinces)
	if err != nil {
		return nil, err
	}
	l, err := FitCategory(ColumnRiskLevel, labels)
	if err != nil {
		return nil, err
	}
	return &Encoder{Provinces: p, Labels: l}, nil
}

// Province returns the id of a province name.
func (e *Encoder) Province(name string) (int, error) {
	return e.Provinces.ID(name)
}

// Label returns the class id of a risk level.
func (e *Encoder) Label(name string) (int, error) {
	return e.Labels.ID(name)
}

// LabelName maps a class id back to its risk level.
func (e *Encoder) LabelName(id int) (string, error) {
	return e.Labels.Name(id)
}

// Encode validates s and returns its feature vector in FeatureNames order.
func (e *Encoder) Encode(s Sample) ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	province, err := e.Province(s.Province)
	if err != nil {
		return nil, err
	}
	return []float64{
		s.AvgRainfallMM,
		s.RiverProximityKM,
		s.ElevationM,
		float64(s.HistoricalFloodCount),
		float64(province),
	}, nil
}

// EncodeRows turns labeled rows into a feature matrix and label ids.
func (e *Encoder) EncodeRows(rows []Row) ([][]float64, []int, error) {
	features := make([][]float64, len(rows))
	labels := make([]int, len(rows))
	for i, row := range rows {
		vector, err := e.Encode(row.Sample)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", row.Line, err)
		}
		label, err := e.Label(row.RiskLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", row.Line, err)
		}
		features[i] = vector
		labels[i] = label
	}
	return features, labels, nil
}
