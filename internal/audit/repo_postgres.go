package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends audit events to an insert-only table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, type, operator, ip_address, campaign_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, string(e.Type), nullable(e.Operator), nullable(e.IPAddress), nullable(e.CampaignID), nullable(e.Message), nullable(e.Metadata), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

func (r *PostgresRepo) ListByCampaign(ctx context.Context, campaignID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, operator, ip_address, campaign_id, message, metadata, created_at
		FROM audit_events
		WHERE campaign_id = $1
		ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	defer rows.Close()

	out := make([]Event, 0)
	for rows.Next() {
		var e Event
		var typ string
		var operator, ip, camp, msg, meta sql.NullString
		if err := rows.Scan(&e.ID, &typ, &operator, &ip, &camp, &msg, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Type = EventType(typ)
		e.Operator = operator.String
		e.IPAddress = ip.String
		e.CampaignID = camp.String
		e.Message = msg.String
		e.Metadata = meta.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
