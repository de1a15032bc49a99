package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"floodrisk/db"
	"floodrisk/ml"
	"floodrisk/monitoring"
)

var (
	artifactOnce sync.Once
	artifact     *ml.Artifact
	artifactErr  error
)

// testArtifact trains a small forest once on data where every numeric
// feature separates the three classes.
func testArtifact(t *testing.T) *ml.Artifact {
	t.Helper()
	artifactOnce.Do(func() {
		provinces := []string{"Bukidnon", "Misamis Oriental", "Lanao del Norte", "Misamis Occidental", "Camiguin"}
		rows := make([]ml.Row, 0, 90)
		for i := 0; i < 90; i++ {
			jitter := float64(i % 7)
			province := provinces[i%len(provinces)]
			var row ml.Row
			switch i % 3 {
			case 0:
				row = ml.Row{Sample: ml.Sample{AvgRainfallMM: 10 + jitter, RiverProximityKM: 8, ElevationM: 200 + jitter, HistoricalFloodCount: 0}, RiskLevel: "Low"}
			case 1:
				row = ml.Row{Sample: ml.Sample{AvgRainfallMM: 60 + jitter, RiverProximityKM: 4, ElevationM: 80 + jitter, HistoricalFloodCount: 3}, RiskLevel: "Medium"}
			default:
				row = ml.Row{Sample: ml.Sample{AvgRainfallMM: 140 + jitter, RiverProximityKM: 0.5, ElevationM: 5, HistoricalFloodCount: 8}, RiskLevel: "High"}
			}
			row.Line = i + 2
			row.Sample.Province = province
			rows = append(rows, row)
		}
		config := ml.DefaultTrainingConfig()
		config.Trees = 15
		result, err := ml.Train(rows, config)
		if err != nil {
			artifactErr = err
			return
		}
		artifact = result.Artifact
	})
	if artifactErr != nil {
		t.Fatalf("train test model: %v", artifactErr)
	}
	return artifact
}

type testServer struct {
	*Server
	store   *db.Store
	metrics *monitoring.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := db.InitDB(filepath.Join(t.TempDir(), "floodrisk.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	sessions, err := NewSessionStore(16, "")
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	metrics := monitoring.NewMetricsForTesting()
	server, err := NewServer(DefaultServerConfig(), Deps{
		Model:    testArtifact(t),
		Sessions: sessions,
		Store:    store,
		Metrics:  metrics,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return &testServer{Server: server, store: store, metrics: metrics}
}

func (s *testServer) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		if payload, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) postForm(t *testing.T, values url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rr.Body.String(), err)
	}
}
