package tickets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tokenrotor/pkg/engine"
	"tokenrotor/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	token   TEXT    NOT NULL UNIQUE,
	updated INTEGER NOT NULL DEFAULT 0
);
`

// Store gives cursor-ordered access to the tickets table and owns the bulk
// token updates. It implements engine.RecordSource.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// Open connects to the ticket database. The driver name and DSN come from
// configuration; sqlite is registered by this package.
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket database: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.GetLogger(),
	}, nil
}

// EnsureSchema creates the tickets table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tickets table: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the total number of tickets.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

// CountThrough returns the number of tickets with id <= lastID.
func (s *Store) CountThrough(ctx context.Context, lastID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets WHERE id <= ?`, lastID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count processed tickets: %w", err)
	}
	return count, nil
}

// NextBatch returns up to limit tickets with id strictly greater than
// afterID, ordered ascending by id.
func (s *Store) NextBatch(ctx context.Context, afterID int64, limit int) ([]engine.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, token, updated FROM tickets WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket batch: %w", err)
	}
	defer rows.Close()

	var batch []engine.Record
	for rows.Next() {
		var rec engine.Record
		if err := rows.Scan(&rec.ID, &rec.Token, &rec.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticket batch: %w", err)
	}

	return batch, nil
}

// RegenerateRange assigns a fresh token to every ticket with id in
// [startID, endID] and marks it updated, inside a single transaction. All
// rows commit together or none do, so a failed batch can be retried as-is.
func (s *Store) RegenerateRange(ctx context.Context, startID, endID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM tickets WHERE id >= ? AND id <= ? ORDER BY id`, startID, endID)
	if err != nil {
		return 0, fmt.Errorf("failed to select ticket range: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan ticket id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to read ticket range: %w", err)
	}
	rows.Close()

	stmt, err := tx.PrepareContext(ctx, `UPDATE tickets SET token = ?, updated = 1 WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare token update: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, uuid.NewString(), id); err != nil {
			return 0, fmt.Errorf("failed to update ticket %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit token updates: %w", err)
	}

	s.logger.DebugWithFields("Tokens regenerated", map[string]interface{}{
		"start_id": startID,
		"end_id":   endID,
		"updated":  len(ids),
	})

	return int64(len(ids)), nil
}

// Seed bulk-creates n tickets with fresh tokens, inserting batchSize rows
// per transaction. Each call to onBatch reports cumulative inserted rows.
func (s *Store) Seed(ctx context.Context, n int64, batchSize int, onBatch func(created int64)) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	var created int64
	for created < n {
		size := batchSize
		if remaining := n - created; remaining < int64(size) {
			size = int(remaining)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin seed transaction: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO tickets (token, updated) VALUES (?, 0)`)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to prepare seed insert: %w", err)
		}

		for i := 0; i < size; i++ {
			if _, err := stmt.ExecContext(ctx, uuid.NewString()); err != nil {
				stmt.Close()
				tx.Rollback()
				return fmt.Errorf("failed to insert ticket: %w", err)
			}
		}
		stmt.Close()

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit seed batch: %w", err)
		}

		created += int64(size)
		if onBatch != nil {
			onBatch(created)
		}
	}

	return nil
}
