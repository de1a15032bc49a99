package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyDataset  = errors.New("dataset is empty")
	ErrMissingColumn = errors.New("missing column")
)

// Row is one labeled record of the training CSV. Line is the 1-based
// line number in the source file, kept for error messages.
type Row struct {
	Line      int
	Sample    Sample
	RiskLevel string
}

// LoadDataset reads a CSV file from disk.
func LoadDataset(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := ReadDataset(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ReadDataset parses CSV with a header row. Columns may come in any order and
// unknown columns are ignored. A leading UTF-8 byte order mark is dropped.
func ReadDataset(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.UTF8BOM.NewDecoder()))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, err
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	required := append(FeatureNames(), ColumnRiskLevel)
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		// A quoted field may span lines, so take the line from the reader.
		line, _ := reader.FieldPos(0)
		row, err := parseRow(record, columns, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return rows, nil
}

func parseRow(record []string, columns map[string]int, line int) (Row, error) {
	field := func(name string) string {
		return strings.TrimSpace(record[columns[name]])
	}

	float := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w: %s=%q", line, ErrInvalidValue, name, field(name))
		}
		return v, nil
	}

	rainfall, err := float(ColumnRainfall)
	if err != nil {
		return Row{}, err
	}
	river, err := float(ColumnRiver)
	if err != nil {
		return Row{}, err
	}
	elevation, err := float(ColumnElevation)
	if err != nil {
		return Row{}, err
	}
	floods, err := float(ColumnFloodCount)
	if err != nil {
		return Row{}, err
	}
	if floods != math.Trunc(floods) {
		return Row{}, fmt.Errorf("line %d: %w: %s=%q is not a whole number", line, ErrInvalidValue, ColumnFloodCount, field(ColumnFloodCount))
	}

	row := Row{
		Line: line,
		Sample: Sample{
			AvgRainfallMM:        rainfall,
			RiverProximityKM:     river,
			ElevationM:           elevation,
			HistoricalFloodCount: int(floods),
			Province:             field(ColumnProvince),
		},
		RiskLevel: field(ColumnRiskLevel),
	}
	if err := row.Sample.Validate(); err != nil {
		return Row{}, fmt.Errorf("line %d: %w", line, err)
	}
	if row.Sample.Province == "" {
		return Row{}, fmt.Errorf("line %d: %w: empty %s", line, ErrInvalidValue, ColumnProvince)
	}
	if row.RiskLevel == "" {
		return Row{}, fmt.Errorf("line %d: %w: empty %s", line, ErrInvalidValue, ColumnRiskLevel)
	}
	if err := CheckRiskLevel(row.RiskLevel); err != nil {
		return Row{}, fmt.Errorf("line %d: %w", line, err)
	}
	return row, nil
}
