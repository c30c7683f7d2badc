package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const campaignColumns = `id, name, product_type, dialing_type, created_by, notes,
	pacing_ratio, retry_count, status, is_active, started_at, stopped_at, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, c Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, product_type, dialing_type, created_by, notes,
			pacing_ratio, retry_count, status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.Name, c.ProductType, c.DialingType, c.CreatedBy, c.Notes,
		c.PacingRatio, c.RetryCount, c.Status, c.IsActive)
	if err != nil {
		return fmt.Errorf("campaigns: create: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	if err != nil {
		return Campaign{}, fmt.Errorf("campaigns: get: %w", err)
	}
	return c, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("campaigns: list: %w", err)
	}
	defer rows.Close()

	out := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("campaigns: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, id string, status Status, startedAt, stoppedAt *time.Time, clearStopped bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $2,
		    is_active = $3,
		    started_at = COALESCE($4, started_at),
		    stopped_at = CASE WHEN $6 THEN NULL ELSE COALESCE($5, stopped_at) END,
		    updated_at = now()
		WHERE id = $1`,
		id, status, status.Active(), startedAt, stoppedAt, clearStopped)
	if err != nil {
		return fmt.Errorf("campaigns: update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("campaigns: update status rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (Campaign, error) {
	var c Campaign
	var productType, dialingType, createdBy, notes sql.NullString
	var startedAt, stoppedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &productType, &dialingType, &createdBy, &notes,
		&c.PacingRatio, &c.RetryCount, &c.Status, &c.IsActive, &startedAt, &stoppedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Campaign{}, err
	}
	c.ProductType = productType.String
	c.DialingType = dialingType.String
	c.CreatedBy = createdBy.String
	c.Notes = notes.String
	if startedAt.Valid {
		t := startedAt.Time
		c.StartedAt = &t
	}
	if stoppedAt.Valid {
		t := stoppedAt.Time
		c.StoppedAt = &t
	}
	return c, nil
}
