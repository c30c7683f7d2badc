package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepo stores call records in Postgres. Finalization uses a
// conditional UPDATE so a record cannot leave ringing twice.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, rec CallRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calls (id, campaign_id, contact_id, agent_id, caller_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.CampaignID, rec.ContactID, rec.AgentID, rec.CallerID, rec.Status, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("calls: create: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (CallRecord, error) {
	var rec CallRecord
	var disposition, notes sql.NullString
	var endedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, contact_id, agent_id, caller_id, status, disposition,
		       started_at, ended_at, duration_seconds, notes
		FROM calls WHERE id = $1`, id).
		Scan(&rec.ID, &rec.CampaignID, &rec.ContactID, &rec.AgentID, &rec.CallerID,
			&rec.Status, &disposition, &rec.StartedAt, &endedAt, &rec.DurationSeconds, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	if err != nil {
		return CallRecord{}, fmt.Errorf("calls: get: %w", err)
	}
	rec.Disposition = disposition.String
	rec.Notes = notes.String
	if endedAt.Valid {
		t := endedAt.Time
		rec.EndedAt = &t
	}
	return rec, nil
}

func (r *PostgresRepo) Finalize(ctx context.Context, id string, status CallStatus, endedAt time.Time, durationSeconds int, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE calls
		SET status = $2, disposition = $2, ended_at = $3, duration_seconds = $4,
		    notes = CASE WHEN $5 = '' THEN notes ELSE $5 END
		WHERE id = $1 AND status = 'ringing'`,
		id, status, endedAt, durationSeconds, notes)
	if err != nil {
		return fmt.Errorf("calls: finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("calls: finalize rows: %w", err)
	}
	if n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadyFinalized
	}
	return nil
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID string) ([]CallRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, contact_id, agent_id, caller_id, status, disposition,
		       started_at, ended_at, duration_seconds, notes
		FROM calls WHERE campaign_id = $1
		ORDER BY started_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("calls: list: %w", err)
	}
	defer rows.Close()

	out := make([]CallRecord, 0)
	for rows.Next() {
		var rec CallRecord
		var disposition, notes sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.CampaignID, &rec.ContactID, &rec.AgentID, &rec.CallerID,
			&rec.Status, &disposition, &rec.StartedAt, &endedAt, &rec.DurationSeconds, &notes); err != nil {
			return nil, fmt.Errorf("calls: scan: %w", err)
		}
		rec.Disposition = disposition.String
		rec.Notes = notes.String
		if endedAt.Valid {
			t := endedAt.Time
			rec.EndedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, campaignID string, status CallStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM calls WHERE campaign_id = $1 AND status = $2`,
		campaignID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("calls: count by status: %w", err)
	}
	return n, nil
}

func (r *PostgresRepo) CountTotal(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM calls WHERE campaign_id = $1`, campaignID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("calls: count: %w", err)
	}
	return n, nil
}
