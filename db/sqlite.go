package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps the training run log and the history of served predictions.
type Store struct {
	database *sql.DB
}

// InitDB opens the SQLite database at path and creates missing tables.
func InitDB(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50),
        model_path TEXT,
        encoding VARCHAR(20),
        trees INTEGER,
        seed INTEGER,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        trained_at DATETIME,
        data_points INTEGER
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        province TEXT NOT NULL,
        municipality TEXT,
        avg_rainfall_mm REAL,
        river_proximity_km REAL,
        elevation_m REAL,
        historical_flood_count INTEGER,
        predicted_label VARCHAR(20) NOT NULL,
        class_id INTEGER,
        probabilities TEXT,
        source VARCHAR(20),
        timestamp DATETIME
    );
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.database.Close()
}

// TrainingLog is one training run with its held-out scores.
type TrainingLog struct {
	ModelName  string    `json:"model_name"`
	ModelPath  string    `json:"model_path"`
	Encoding   string    `json:"encoding"`
	Trees      int       `json:"trees"`
	Seed       int64     `json:"seed"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	TrainedAt  time.Time `json:"trained_at"`
	DataPoints int       `json:"data_points"`
}

// SaveTrainingLog appends a run to the training log.
func (s *Store) SaveTrainingLog(log TrainingLog) error {
	_, err := s.database.Exec(`
        INSERT INTO training_log (
            model_name, model_path, encoding, trees, seed,
            accuracy, precision, recall, f1, trained_at, data_points
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		log.ModelName,
		log.ModelPath,
		log.Encoding,
		log.Trees,
		log.Seed,
		log.Accuracy,
		log.Precision,
		log.Recall,
		log.F1,
		log.TrainedAt.UTC(),
		log.DataPoints,
	)
	return err
}

// LoadTrainingLog returns every run, newest first.
func (s *Store) LoadTrainingLog() ([]TrainingLog, error) {
	rows, err := s.database.Query(`
        SELECT model_name, model_path, encoding, trees, seed,
               accuracy, precision, recall, f1, trained_at, data_points
        FROM training_log
        ORDER BY trained_at DESC, id DESC
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(&log.ModelName, &log.ModelPath, &log.Encoding, &log.Trees, &log.Seed,
			&log.Accuracy, &log.Precision, &log.Recall, &log.F1, &log.TrainedAt, &log.DataPoints); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// PredictionRecord is one served prediction with the inputs that produced it.
type PredictionRecord struct {
	Province             string             `json:"province"`
	Municipality         string             `json:"municipality,omitempty"`
	AvgRainfallMM        float64            `json:"avg_rainfall_mm"`
	RiverProximityKM     float64            `json:"river_proximity_km"`
	ElevationM           float64            `json:"elevation_m"`
	HistoricalFloodCount int                `json:"historical_flood_count"`
	Label                string             `json:"label"`
	ClassID              int                `json:"class_id"`
	Probabilities        map[string]float64 `json:"probabilities"`
	Source               string             `json:"source"`
	Timestamp            time.Time          `json:"timestamp"`
}

// SavePrediction appends one served prediction. Province and label are required.
func (s *Store) SavePrediction(record PredictionRecord) error {
	if record.Province == "" || record.Label == "" {
		return errors.New("province and label required")
	}
	probabilities, err := json.Marshal(record.Probabilities)
	if err != nil {
		return err
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	_, err = s.database.Exec(`
        INSERT INTO predictions (
            province, municipality, avg_rainfall_mm, river_proximity_km, elevation_m,
            historical_flood_count, predicted_label, class_id, probabilities, source, timestamp
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		record.Province,
		record.Municipality,
		record.AvgRainfallMM,
		record.RiverProximityKM,
		record.ElevationM,
		record.HistoricalFloodCount,
		record.Label,
		record.ClassID,
		string(probabilities),
		record.Source,
		record.Timestamp.UTC(),
	)
	return err
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.database.Query(`
        SELECT province, municipality, avg_rainfall_mm, river_proximity_km, elevation_m,
               historical_flood_count, predicted_label, class_id, probabilities, source, timestamp
        FROM predictions
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var municipality, source sql.NullString
		var probabilities string
		if err := rows.Scan(&r.Province, &municipality, &r.AvgRainfallMM, &r.RiverProximityKM, &r.ElevationM,
			&r.HistoricalFloodCount, &r.Label, &r.ClassID, &probabilities, &source, &r.Timestamp); err != nil {
			return nil, err
		}
		r.Municipality = municipality.String
		r.Source = source.String
		if err := json.Unmarshal([]byte(probabilities), &r.Probabilities); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
