package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Harshanhkp24/KrishiMitra/internal/advisory"
	"github.com/Harshanhkp24/KrishiMitra/internal/artifact"
	"github.com/Harshanhkp24/KrishiMitra/internal/models"
	"github.com/Harshanhkp24/KrishiMitra/internal/repository"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

// recordingClassifier returns a fixed code and remembers what it was given.
type recordingClassifier struct {
	mu   sync.Mutex
	code int
	seen [][artifact.NumFeatures]float64
}

func (c *recordingClassifier) Predict(f [artifact.NumFeatures]float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, f)
	return c.code
}

// memoryStore is an in-memory HistoryStore that can be told to fail.
type memoryStore struct {
	mu      sync.Mutex
	records []models.HistoryRecord
	fail    error
}

func (m *memoryStore) Record(_ context.Context, rec models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return models.Persistence("record", m.fail)
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memoryStore) ReadAll(context.Context) ([]models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, models.Persistence("read", m.fail)
	}
	return append([]models.HistoryRecord{}, m.records...), nil
}

func (m *memoryStore) Close() error { return nil }

func stubPredictor(code int, labels map[int]string, store repository.HistoryStore) (*Predictor, *recordingClassifier) {
	clf := &recordingClassifier{code: code}
	model := artifact.New(clf, labels, nil)
	return NewPredictor(model, advisory.NewTable(nil, ""), store, zap.NewNop()), clf
}

func shippedPredictor(t *testing.T, store repository.HistoryStore) *Predictor {
	t.Helper()
	model, err := artifact.Load("../../models/crop_model.json", "../../models/label_map.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return NewPredictor(model, advisory.NewTable(nil, ""), store, zap.NewNop())
}

func TestPredict_ScenarioA_LoamyWheat(t *testing.T) {
	store := &memoryStore{}
	p, clf := stubPredictor(0, map[int]string{0: "Wheat"}, store)

	got, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{
		SoilType: "Loamy", Rainfall: "300", Temperature: "25",
	})
	if err != nil {
		t.Fatalf("PredictAndRecord: %v", err)
	}

	want := &models.PredictionResult{
		SoilType:      "Loamy",
		Rainfall:      300,
		Temperature:   25,
		PredictedCrop: "Wheat",
		Tip:           advisory.DefaultTips["Wheat"],
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][artifact.NumFeatures]float64{{1, 300, 25}}, clf.seen); diff != "" {
		t.Errorf("feature vector mismatch:\n%s", diff)
	}
	if len(store.records) != 1 || store.records[0].PredictedCrop != "Wheat" {
		t.Errorf("history = %+v, want one Wheat record", store.records)
	}
}

func TestPredict_ScenarioB_InvalidSoil(t *testing.T) {
	store := &memoryStore{}
	p, clf := stubPredictor(0, map[int]string{0: "Wheat"}, store)

	_, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{
		SoilType: "Muddy", Rainfall: "100", Temperature: "20",
	})
	if !errors.Is(err, models.ErrInvalidSoilType) {
		t.Fatalf("err = %v, want ErrInvalidSoilType", err)
	}
	var perr *models.PredictionError
	if !errors.As(err, &perr) || perr.Value != "Muddy" {
		t.Errorf("error does not carry the soil value: %v", err)
	}
	if len(store.records) != 0 {
		t.Errorf("history written on failure: %+v", store.records)
	}
	if len(clf.seen) != 0 {
		t.Error("classifier invoked for invalid soil")
	}
}

func TestPredict_ScenarioC_MalformedRainfall(t *testing.T) {
	p, _ := stubPredictor(0, map[int]string{0: "Wheat"}, nil)

	_, err := p.Predict(models.PredictionRequest{SoilType: "Sandy", Rainfall: "abc", Temperature: "30"})
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	var perr *models.PredictionError
	if !errors.As(err, &perr) || perr.Field != "rainfall" || perr.Value != "abc" {
		t.Errorf("error = %+v, want rainfall/abc", perr)
	}
}

func TestPredict_NonFiniteAndBlank(t *testing.T) {
	p, _ := stubPredictor(0, map[int]string{0: "Wheat"}, nil)

	cases := []struct {
		rain, temp, field string
	}{
		{"NaN", "20", "rainfall"},
		{"Inf", "20", "rainfall"},
		{"100", "-Inf", "temperature"},
		{"1e400", "20", "rainfall"},
		{"", "20", "rainfall"},
		{"100", "  ", "temperature"},
	}
	for _, tc := range cases {
		_, err := p.Predict(models.PredictionRequest{SoilType: "Clay", Rainfall: tc.rain, Temperature: tc.temp})
		var perr *models.PredictionError
		if !errors.As(err, &perr) || !errors.Is(err, models.ErrMalformedInput) || perr.Field != tc.field {
			t.Errorf("Predict(%q, %q) err = %v, want MalformedInput on %s", tc.rain, tc.temp, err, tc.field)
		}
	}
}

func TestPredict_AcceptsSurroundingWhitespace(t *testing.T) {
	p, clf := stubPredictor(0, map[int]string{0: "Wheat"}, nil)
	if _, err := p.Predict(models.PredictionRequest{SoilType: "Clay", Rainfall: " 12.5 ", Temperature: "-3"}); err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if clf.seen[0] != [artifact.NumFeatures]float64{0, 12.5, -3} {
		t.Errorf("features = %v", clf.seen[0])
	}
}

func TestPredict_UnknownClassCode(t *testing.T) {
	store := &memoryStore{}
	p, _ := stubPredictor(9, map[int]string{0: "Wheat"}, store)

	_, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{SoilType: "Clay", Rainfall: "1", Temperature: "1"})
	if !errors.Is(err, models.ErrUnknownClassCode) {
		t.Fatalf("err = %v, want ErrUnknownClassCode", err)
	}
	if models.IsRequestError(err) {
		t.Error("unknown class code classified as a request error")
	}
	if len(store.records) != 0 {
		t.Error("history written on failure")
	}
}

func TestPredict_Deterministic(t *testing.T) {
	p := shippedPredictor(t, nil)
	req := models.PredictionRequest{SoilType: "Sandy", Rainfall: "212.5", Temperature: "28.1"}

	first, err := p.Predict(req)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		got, err := p.Predict(req)
		if err != nil {
			t.Fatal(err)
		}
		if got.PredictedCrop != first.PredictedCrop {
			t.Fatalf("run %d: %s != %s", i, got.PredictedCrop, first.PredictedCrop)
		}
	}
}

func TestPredict_FeatureOrderMatters(t *testing.T) {
	model, err := artifact.Load("../../models/crop_model.json", "../../models/label_map.json")
	if err != nil {
		t.Fatal(err)
	}
	inOrder, _ := model.Decode(model.Classify([artifact.NumFeatures]float64{1, 300, 25}))
	swapped, _ := model.Decode(model.Classify([artifact.NumFeatures]float64{1, 25, 300}))
	if inOrder == swapped {
		t.Fatalf("swapping rainfall and temperature did not change the result (%s)", inOrder)
	}

	got, err := shippedPredictor(t, nil).Predict(models.PredictionRequest{SoilType: "Loamy", Rainfall: "300", Temperature: "25"})
	if err != nil {
		t.Fatal(err)
	}
	if got.PredictedCrop != inOrder {
		t.Errorf("engine predicted %s, in-order vector gives %s", got.PredictedCrop, inOrder)
	}
}

func TestPredictAndRecord_PersistenceFailureKeepsResult(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	p, _ := stubPredictor(0, map[int]string{0: "Rice"}, store)

	got, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{SoilType: "Sandy", Rainfall: "200", Temperature: "30"})
	if !errors.Is(err, models.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if got == nil || got.PredictedCrop != "Rice" {
		t.Fatalf("result = %+v, want Rice despite history failure", got)
	}
}

func TestPredictAndRecord_NilHistory(t *testing.T) {
	p, _ := stubPredictor(0, map[int]string{0: "Rice"}, nil)
	if _, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{SoilType: "Sandy", Rainfall: "1", Temperature: "1"}); err != nil {
		t.Fatal(err)
	}
	recs, err := p.ListHistory(context.Background())
	if err != nil || len(recs) != 0 {
		t.Errorf("ListHistory = %v, %v", recs, err)
	}
}

func TestPredictAndRecord_RecordsTimestampedRow(t *testing.T) {
	store := &memoryStore{}
	p, _ := stubPredictor(0, map[int]string{0: "Millet"}, store)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("IST", 5*3600+1800))
	p.now = func() time.Time { return fixed }

	if _, err := p.PredictAndRecord(context.Background(), models.PredictionRequest{SoilType: "Clay", Rainfall: "100", Temperature: "20"}); err != nil {
		t.Fatal(err)
	}
	want := []models.HistoryRecord{{
		Timestamp:     fixed.UTC(),
		SoilType:      "Clay",
		Rainfall:      100,
		Temperature:   20,
		PredictedCrop: "Millet",
	}}
	if diff := cmp.Diff(want, store.records); diff != "" {
		t.Errorf("history mismatch:\n%s", diff)
	}
}

func TestPredictAndRecord_ScenarioD_ConcurrentCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	store := repository.NewCSVHistory(path, zap.NewNop())
	p := shippedPredictor(t, store)

	reqs := []models.PredictionRequest{
		{SoilType: "Loamy", Rainfall: "300", Temperature: "25"},
		{SoilType: "Sandy", Rainfall: "200", Temperature: "30"},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req models.PredictionRequest) {
			defer wg.Done()
			_, errs[i] = p.PredictAndRecord(context.Background(), req)
		}(i, req)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := p.ListHistory(context.Background())
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	crops := map[string]string{}
	for _, r := range recs {
		crops[r.SoilType] = fmt.Sprintf("%s/%g/%g", r.PredictedCrop, r.Rainfall, r.Temperature)
	}
	want := map[string]string{"Loamy": "Wheat/300/25", "Sandy": "Rice/200/30"}
	if diff := cmp.Diff(want, crops); diff != "" {
		t.Errorf("records mismatch:\n%s", diff)
	}

	stats, err := p.HistoryStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(models.HistoryStats{Total: 2, ByCrop: map[string]int{"Wheat": 1, "Rice": 1}}, stats); diff != "" {
		t.Errorf("stats mismatch:\n%s", diff)
	}
}
