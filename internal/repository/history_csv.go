package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"

	"go.uber.org/zap"
)

// CSVHistory keeps the history log in a flat CSV file. Appends hold the
// write lock until the row is synced, and reads hold the read lock, so a
// reader never sees half a row. The same discipline is repeated with an
// advisory file lock so separate processes sharing the file stay serialized.
type CSVHistory struct {
	path   string
	mu     sync.RWMutex
	logger *zap.Logger

	openAppend func(path string) (appendFile, error)
}

// appendFile is the part of *os.File an append needs.
type appendFile interface {
	io.Writer
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Sync() error
	Close() error
	Fd() uintptr
}

// NewCSVHistory creates a store backed by path. The file is created on the
// first Record.
func NewCSVHistory(path string, logger *zap.Logger) *CSVHistory {
	logger.Info("CSV history store initialized", zap.String("path", path))
	return &CSVHistory{path: path, logger: logger, openAppend: openAppendFile}
}

func openAppendFile(path string) (appendFile, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Record appends rec, writing the header first if the file is new or empty.
func (h *CSVHistory) Record(_ context.Context, rec models.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.appendRow(rec); err != nil {
		return models.Persistence("record", err)
	}
	return nil
}

// appendRow writes header and row with a single Write. Any failure rolls
// the file back to its previous size so no partial row survives.
func (h *CSVHistory) appendRow(rec models.HistoryRecord) (err error) {
	if dir := filepath.Dir(h.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	file, err := h.openAppend(h.path)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close history file: %w", cerr)
		}
	}()

	unlock, err := lockFile(file.Fd(), true)
	if err != nil {
		return fmt.Errorf("failed to lock history file: %w", err)
	}
	defer unlock()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat history file: %w", err)
	}
	size := info.Size()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if size == 0 {
		w.Write(HistoryColumns)
	}
	w.Write(encodeRow(rec))
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if _, err := file.Write(buf.Bytes()); err != nil {
		return rollback(file, size, fmt.Errorf("failed to write record: %w", err))
	}
	if err := file.Sync(); err != nil {
		return rollback(file, size, fmt.Errorf("failed to sync history file: %w", err))
	}
	return nil
}

func rollback(file appendFile, size int64, cause error) error {
	if err := file.Truncate(size); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to roll back partial record: %w", err))
	}
	return cause
}

// ReadAll replays the log in write order. A missing or empty file is empty
// history; anything unparseable is an error.
func (h *CSVHistory) ReadAll(_ context.Context) ([]models.HistoryRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	records, err := h.read()
	if err != nil {
		return nil, models.Persistence("read", err)
	}
	return records, nil
}

func (h *CSVHistory) read() ([]models.HistoryRecord, error) {
	file, err := os.Open(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	unlock, err := lockFile(file.Fd(), false)
	if err != nil {
		return nil, fmt.Errorf("failed to lock history file: %w", err)
	}
	defer unlock()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(HistoryColumns)

	header, err := r.Read()
	if err == io.EOF {
		return []models.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !slices.Equal(header, HistoryColumns) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	records := []models.HistoryRecord{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		rec, err := decodeRow(row)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close is a no-op; the file is opened per call.
func (h *CSVHistory) Close() error {
	return nil
}

func encodeRow(rec models.HistoryRecord) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.SoilType,
		strconv.FormatFloat(rec.Rainfall, 'g', -1, 64),
		strconv.FormatFloat(rec.Temperature, 'g', -1, 64),
		rec.PredictedCrop,
	}
}

func decodeRow(row []string) (models.HistoryRecord, error) {
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("bad timestamp %q: %w", row[0], err)
	}
	rainfall, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("bad rainfall %q: %w", row[2], err)
	}
	temperature, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return models.HistoryRecord{}, fmt.Errorf("bad temperature %q: %w", row[3], err)
	}
	return models.HistoryRecord{
		Timestamp:     ts,
		SoilType:      row[1],
		Rainfall:      rainfall,
		Temperature:   temperature,
		PredictedCrop: row[4],
	}, nil
}

// WriteCSV writes records with the header row in the persisted layout.
func WriteCSV(w io.Writer, records []models.HistoryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryColumns); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(encodeRow(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
