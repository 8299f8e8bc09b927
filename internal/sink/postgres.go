package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink stores rows in a daily_rows table. Cells are kept as the same
// text array that the other destinations receive, so every store holds
// byte-identical serialized rows.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink connects to Postgres and verifies the connection.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// EnsureSchema creates the daily_rows table when missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_rows (
			position BIGSERIAL PRIMARY KEY,
			date     TEXT NOT NULL,
			cells    TEXT[] NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating daily_rows table: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() {
	s.pool.Close()
}

func (s *PostgresSink) ListRows(ctx context.Context) ([]KeyedRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT position, date FROM daily_rows ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing rows: %w", err)
	}
	defer rows.Close()

	var out []KeyedRow
	for rows.Next() {
		var r KeyedRow
		if err := rows.Scan(&r.Position, &r.Date); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresSink) WriteRows(ctx context.Context, updates []RowUpdate, appends [][]string) error {
	if len(updates) > 0 {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`UPDATE daily_rows SET date = $1, cells = $2 WHERE position = $3`,
				u.Cells[0], u.Cells, u.Position)
		}
		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("updating %d rows: %w", len(updates), err)
		}
	}

	if len(appends) > 0 {
		placeholders := make([]string, 0, len(appends))
		args := make([]any, 0, len(appends)*2)
		for i, cells := range appends {
			placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
			args = append(args, cells[0], cells)
		}
		query := `INSERT INTO daily_rows (date, cells) VALUES ` + strings.Join(placeholders, ", ")
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("appending %d rows: %w", len(appends), err)
		}
	}
	return nil
}
