package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harshanhkp24/KrishiMitra/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLHistory keeps the history log in a prediction_history table on sqlite
// or postgres.
type SQLHistory struct {
	db     *sqlx.DB
	driver string
	mu     sync.Mutex
	logger *zap.Logger
}

type historyRow struct {
	ID            int64   `db:"id"`
	RecordedAt    string  `db:"recorded_at"`
	SoilType      string  `db:"soil_type"`
	Rainfall      float64 `db:"rainfall"`
	Temperature   float64 `db:"temperature"`
	PredictedCrop string  `db:"predicted_crop"`
}

// NewSQLHistory opens the database and creates the table if needed.
func NewSQLHistory(driver, dsn string, logger *zap.Logger) (*SQLHistory, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, models.Persistence("open", fmt.Errorf("failed to open database: %w", err))
	}
	if driver == DriverSQLite {
		// one writer connection; sqlite locks the whole file anyway
		db.SetMaxOpenConns(1)
	}

	repo := &SQLHistory{
		db:     db,
		driver: driver,
		logger: logger,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, models.Persistence("open", fmt.Errorf("failed to migrate database: %w", err))
	}

	logger.Info("SQL history store initialized", zap.String("driver", driver))

	return repo, nil
}

// migrate creates tables
func (r *SQLHistory) migrate() error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.driver == DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS prediction_history (
		%s,
		recorded_at TEXT NOT NULL,
		soil_type TEXT NOT NULL,
		rainfall DOUBLE PRECISION NOT NULL,
		temperature DOUBLE PRECISION NOT NULL,
		predicted_crop TEXT NOT NULL
	)`, idColumn)

	_, err := r.db.Exec(schema)
	return err
}

// Record inserts one row
func (r *SQLHistory) Record(ctx context.Context, rec models.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := r.db.Rebind(`
		INSERT INTO prediction_history (
			recorded_at, soil_type, rainfall, temperature, predicted_crop
		) VALUES (?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.SoilType,
		rec.Rainfall,
		rec.Temperature,
		rec.PredictedCrop,
	)
	if err != nil {
		return models.Persistence("record", fmt.Errorf("failed to insert history: %w", err))
	}
	return nil
}

// ReadAll returns all rows in insertion order
func (r *SQLHistory) ReadAll(ctx context.Context) ([]models.HistoryRecord, error) {
	query := `
		SELECT id, recorded_at, soil_type, rainfall, temperature, predicted_crop
		FROM prediction_history
		ORDER BY id
	`

	var rows []historyRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, models.Persistence("read", fmt.Errorf("failed to query history: %w", err))
	}

	records := make([]models.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339Nano, row.RecordedAt)
		if err != nil {
			return nil, models.Persistence("read", fmt.Errorf("row %d has bad timestamp %q: %w", row.ID, row.RecordedAt, err))
		}
		records = append(records, models.HistoryRecord{
			Timestamp:     ts,
			SoilType:      row.SoilType,
			Rainfall:      row.Rainfall,
			Temperature:   row.Temperature,
			PredictedCrop: row.PredictedCrop,
		})
	}
	return records, nil
}

// Close closes the database connection
func (r *SQLHistory) Close() error {
	return r.db.Close()
}
