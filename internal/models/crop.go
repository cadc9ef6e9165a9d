package models

import "time"

// PredictionRequest carries the raw field values of a scoring request.
// Numeric fields stay as strings until the engine parses them.
type PredictionRequest struct {
	SoilType    string `json:"soil_type" form:"soil_type"`
	Rainfall    string `json:"rainfall" form:"rainfall"`
	Temperature string `json:"temperature" form:"temperature"`
}

// PredictionResult is the outcome of one successful prediction
type PredictionResult struct {
	SoilType      string  `json:"soil_type"`
	Rainfall      float64 `json:"rainfall"`
	Temperature   float64 `json:"temperature"`
	PredictedCrop string  `json:"predicted_crop"`
	Tip           string  `json:"tip"`
}

// HistoryRecord is one row of the prediction history log
type HistoryRecord struct {
	Timestamp     time.Time `json:"timestamp"`
	SoilType      string    `json:"soil_type"`
	Rainfall      float64   `json:"rainfall"`
	Temperature   float64   `json:"temperature"`
	PredictedCrop string    `json:"predicted_crop"`
}

// NewHistoryRecord builds the history row for a served prediction.
func NewHistoryRecord(res *PredictionResult, at time.Time) HistoryRecord {
	return HistoryRecord{
		Timestamp:     at.UTC(),
		SoilType:      res.SoilType,
		Rainfall:      res.Rainfall,
		Temperature:   res.Temperature,
		PredictedCrop: res.PredictedCrop,
	}
}

// HistoryStats summarises the history log for reporting
type HistoryStats struct {
	Total  int            `json:"total"`
	ByCrop map[string]int `json:"by_crop"`
}

// Summarize counts records in total and per predicted crop.
func Summarize(records []HistoryRecord) HistoryStats {
	stats := HistoryStats{ByCrop: make(map[string]int)}
	for _, rec := range records {
		stats.Total++
		stats.ByCrop[rec.PredictedCrop]++
	}
	return stats
}
