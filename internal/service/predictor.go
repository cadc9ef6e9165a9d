package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Harshanhkp24/KrishiMitra/internal/artifact"
	"github.com/Harshanhkp24/KrishiMitra/internal/models"
	"github.com/Harshanhkp24/KrishiMitra/internal/repository"

	"go.uber.org/zap"
)

// Model is the trained artifact as seen by the engine
type Model interface {
	Encode(soilType string) (int, error)
	Classify(features [artifact.NumFeatures]float64) int
	Decode(code int) (string, error)
}

// Advisor resolves cultivation tips. TipFor must never fail.
type Advisor interface {
	TipFor(crop string) string
}

// Predictor runs the scoring pipeline and writes history
type Predictor struct {
	model   Model
	advisor Advisor
	history repository.HistoryStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewPredictor creates a new prediction engine. history may be nil, in
// which case nothing is recorded.
func NewPredictor(
	model Model,
	advisor Advisor,
	history repository.HistoryStore,
	logger *zap.Logger,
) *Predictor {
	return &Predictor{
		model:   model,
		advisor: advisor,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// Predict validates, encodes and scores one request. It does no I/O.
func (p *Predictor) Predict(req models.PredictionRequest) (*models.PredictionResult, error) {
	rainfall, err := parseFinite("rainfall", req.Rainfall)
	if err != nil {
		return nil, err
	}
	temperature, err := parseFinite("temperature", req.Temperature)
	if err != nil {
		return nil, err
	}

	soilCode, err := p.model.Encode(req.SoilType)
	if err != nil {
		return nil, err
	}

	// Column order is fixed by training.
	features := [artifact.NumFeatures]float64{float64(soilCode), rainfall, temperature}

	code := p.model.Classify(features)
	crop, err := p.model.Decode(code)
	if err != nil {
		return nil, err
	}

	return &models.PredictionResult{
		SoilType:      req.SoilType,
		Rainfall:      rainfall,
		Temperature:   temperature,
		PredictedCrop: crop,
		Tip:           p.advisor.TipFor(crop),
	}, nil
}

// PredictAndRecord scores the request and appends it to history. When only
// the history write fails, the result is returned together with an error
// matching models.ErrPersistence; the prediction itself is still valid.
func (p *Predictor) PredictAndRecord(ctx context.Context, req models.PredictionRequest) (*models.PredictionResult, error) {
	result, err := p.Predict(req)
	if err != nil {
		return nil, err
	}

	if p.history == nil {
		return result, nil
	}

	rec := models.NewHistoryRecord(result, p.now())
	if err := p.history.Record(ctx, rec); err != nil {
		p.logger.Warn("Failed to record prediction history",
			zap.String("crop", result.PredictedCrop),
			zap.Error(err))
		return result, err
	}

	p.logger.Info("Prediction recorded",
		zap.String("soil_type", result.SoilType),
		zap.Float64("rainfall", result.Rainfall),
		zap.Float64("temperature", result.Temperature),
		zap.String("crop", result.PredictedCrop))

	return result, nil
}

// ListHistory returns every recorded prediction in write order
func (p *Predictor) ListHistory(ctx context.Context) ([]models.HistoryRecord, error) {
	if p.history == nil {
		return []models.HistoryRecord{}, nil
	}
	return p.history.ReadAll(ctx)
}

// HistoryStats returns history totals per crop
func (p *Predictor) HistoryStats(ctx context.Context) (models.HistoryStats, error) {
	records, err := p.ListHistory(ctx)
	if err != nil {
		return models.HistoryStats{}, err
	}
	return models.Summarize(records), nil
}

func parseFinite(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, models.MalformedInput(field, raw, fmt.Errorf("out of range"))
	}
	if err != nil {
		return 0, models.MalformedInput(field, raw, fmt.Errorf("not a number"))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.MalformedInput(field, raw, fmt.Errorf("not finite"))
	}
	return v, nil
}
