package db

import (
	"context"
	"fmt"
	"time"
)

// Run is one archived completed run.
type Run struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Speed      float64   `json:"speed"`
	RecordedAt time.Time `json:"recordedAt"`
}

func (d *DB) BatchRecordRuns(ctx context.Context, runs []Run) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO runs (name, speed, recorded_at)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range runs {
		if _, err := stmt.ExecContext(ctx, r.Name, r.Speed, r.RecordedAt); err != nil {
			return fmt.Errorf("recording run in batch: %w", err)
		}
	}
	return tx.Commit()
}

// TopRuns returns up to limit runs, lowest speed first.
func (d *DB) TopRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, name, speed, recorded_at
		FROM runs
		ORDER BY speed ASC, recorded_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Speed, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
