package contacts

import (
	"context"
	"database/sql"
	"fmt"

	"dialer-platform/pkg/utils"
)

// PostgresRepo stores contacts in Postgres. Batch order follows the
// bigserial position column the database assigns on insert; the uuid
// primary key and created_at cannot order a batch (lexicographic uuids,
// one now() per import tx).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) NextBatch(ctx context.Context, campaignID string, limit int) ([]Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, name, phone, is_called, metadata, notes, created_at, updated_at
		FROM contacts
		WHERE campaign_id = $1 AND is_called = false
		ORDER BY position
		LIMIT $2`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("contacts: next batch: %w", err)
	}
	defer rows.Close()

	out := make([]Contact, 0, limit)
	for rows.Next() {
		var c Contact
		var metadata, notes sql.NullString
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.Name, &c.Phone, &c.IsCalled, &metadata, &notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("contacts: scan: %w", err)
		}
		c.Metadata = metadata.String
		c.Notes = notes.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Import(ctx context.Context, batch []Contact) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO contacts (id, campaign_id, name, phone, is_called, metadata, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, false, $5, $6, now(), now())`)
		if err != nil {
			return fmt.Errorf("contacts: import prepare: %w", err)
		}
		defer stmt.Close()

		for _, c := range batch {
			if _, err := stmt.ExecContext(ctx, c.ID, c.CampaignID, c.Name, c.Phone, nullable(c.Metadata), nullable(c.Notes)); err != nil {
				return fmt.Errorf("contacts: import row: %w", err)
			}
		}
		return nil
	})
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepo) MarkCalled(ctx context.Context, id string) error {
	return r.setCalled(ctx, id, true)
}

func (r *PostgresRepo) UnmarkCalled(ctx context.Context, id string) error {
	return r.setCalled(ctx, id, false)
}

func (r *PostgresRepo) setCalled(ctx context.Context, id string, called bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET is_called = $2, updated_at = now()
		WHERE id = $1`, id, called)
	if err != nil {
		return fmt.Errorf("contacts: set called: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("contacts: set called rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) CountTotal(ctx context.Context, campaignID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM contacts WHERE campaign_id = $1`, campaignID)
}

func (r *PostgresRepo) CountCalled(ctx context.Context, campaignID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM contacts WHERE campaign_id = $1 AND is_called = true`, campaignID)
}

func (r *PostgresRepo) count(ctx context.Context, query, campaignID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, campaignID).Scan(&n); err != nil {
		return 0, fmt.Errorf("contacts: count: %w", err)
	}
	return n, nil
}
