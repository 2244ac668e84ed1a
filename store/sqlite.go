package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"probeserve/probe"
)

// SQLiteStore serves probe weights from a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite weight database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS probe_weights (
        id INTEGER PRIMARY KEY,
        model VARCHAR(64),
        probe_type VARCHAR(64),
        layer INTEGER,
        weights TEXT,
        bias REAL,
        UNIQUE(model, probe_type, layer)
    );`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init probe_weights table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetWeights looks up the weight row for the triple.
func (s *SQLiteStore) GetWeights(ctx context.Context, model, probeType string, layer int) (probe.Weights, error) {
	var (
		weightsJSON string
		bias        float64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT weights, bias FROM probe_weights WHERE model = ? AND probe_type = ? AND layer = ?`,
		model, probeType, layer,
	).Scan(&weightsJSON, &bias)
	if errors.Is(err, sql.ErrNoRows) {
		return probe.Weights{}, probe.ErrWeightsNotFound
	}
	if err != nil {
		return probe.Weights{}, fmt.Errorf("query probe weights: %w", err)
	}

	var values []float64
	if err := json.Unmarshal([]byte(weightsJSON), &values); err != nil {
		return probe.Weights{}, fmt.Errorf("parse stored weights for %s/%s/%d: %w", model, probeType, layer, err)
	}
	if len(values) == 0 {
		return probe.Weights{}, fmt.Errorf("stored weights for %s/%s/%d are empty", model, probeType, layer)
	}

	return probe.Weights{Weights: values, Bias: bias}, nil
}

// PutWeights inserts or replaces the weight row for the triple. Used by the
// import tooling; the serving path never writes.
func (s *SQLiteStore) PutWeights(ctx context.Context, model, probeType string, layer int, w probe.Weights) error {
	weightsJSON, err := json.Marshal(w.Weights)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO probe_weights (model, probe_type, layer, weights, bias) VALUES (?, ?, ?, ?, ?)`,
		model, probeType, layer, string(weightsJSON), w.Bias,
	)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
