package callerid

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListActive(ctx context.Context) ([]CallerID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, number, label, is_active, created_at
		FROM caller_ids
		WHERE is_active = true
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("callerid: list active: %w", err)
	}
	defer rows.Close()

	out := make([]CallerID, 0)
	for rows.Next() {
		var c CallerID
		var label sql.NullString
		if err := rows.Scan(&c.ID, &c.Number, &label, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("callerid: scan: %w", err)
		}
		c.Label = label.String
		out = append(out, c)
	}
	return out, rows.Err()
}
