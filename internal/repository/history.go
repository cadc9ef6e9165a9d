package repository

import (
	"context"
	"fmt"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"

	"go.uber.org/zap"
)

// HistoryStore is the append-only prediction log
type HistoryStore interface {
	// Record appends one complete record. It must be atomic with respect to
	// other Record calls.
	Record(ctx context.Context, rec models.HistoryRecord) error
	// ReadAll returns every record in write order. A store that was never
	// written reads as empty.
	ReadAll(ctx context.Context) ([]models.HistoryRecord, error)
	Close() error
}

// HistoryColumns is the fixed column order of the persisted log.
var HistoryColumns = []string{"timestamp", "soil_type", "rainfall", "temperature", "predicted_crop"}

// Drivers accepted by OpenHistory
const (
	DriverCSV      = "csv"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenHistory opens the history store selected by driver. For csv and
// sqlite dsn is a file path; for postgres it is a connection URL.
func OpenHistory(driver, dsn string, logger *zap.Logger) (HistoryStore, error) {
	switch driver {
	case "", DriverCSV:
		return NewCSVHistory(dsn, logger), nil
	case DriverSQLite, DriverPostgres:
		return NewSQLHistory(driver, dsn, logger)
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}
