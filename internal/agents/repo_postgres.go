package agents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo stores agents in Postgres. Claim/Release rely on
// conditional UPDATEs so concurrent campaign loops on separate processes
// still get at-most-one-holder semantics.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListIdle(ctx context.Context) ([]Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, extension, status, created_at, updated_at
		FROM agents
		WHERE status = 'idle'
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("agents: list idle: %w", err)
	}
	defer rows.Close()

	out := make([]Agent, 0)
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Extension, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("agents: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Agent, error) {
	var a Agent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, extension, status, created_at, updated_at
		FROM agents WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Extension, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("agents: get: %w", err)
	}
	return a, nil
}

func (r *PostgresRepo) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE agents SET status = 'busy', updated_at = now()
		WHERE id = $1 AND status = 'idle'`, id)
	if err != nil {
		return false, fmt.Errorf("agents: claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("agents: claim rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepo) Release(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE agents SET status = 'idle', updated_at = now()
		WHERE id = $1 AND status = 'busy'`, id)
	if err != nil {
		return false, fmt.Errorf("agents: release: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("agents: release rows: %w", err)
	}
	return n == 1, nil
}
