package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// SaveGeneratedEmail stores the final HTML of one prospect's email, replacing any earlier version
func (db *DB) SaveGeneratedEmail(ctx context.Context, campaignID, trackingID string, email types.RenderedEmail) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO generated_emails (campaign_id, prospect_id, tracking_id, segment_id, subject, html, fallback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (campaign_id, prospect_id) DO UPDATE
		 SET tracking_id = $3, segment_id = $4, subject = $5, html = $6, fallback = $7, created_at = NOW()`,
		campaignID, email.ProspectID, trackingID, email.SegmentID, email.Subject, email.HTML, email.Fallback,
	)
	if err != nil {
		return fmt.Errorf("failed to save email for prospect %s: %w", email.ProspectID, err)
	}
	return nil
}

// SaveLinkMetadata replaces the link records of one prospect's email
func (db *DB) SaveLinkMetadata(ctx context.Context, campaignID, prospectID string, links []types.LinkMetadata) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM link_metadata WHERE campaign_id = $1 AND prospect_id = $2`,
		campaignID, prospectID,
	); err != nil {
		return fmt.Errorf("failed to clear link metadata: %w", err)
	}

	batch := &pgx.Batch{}
	for _, link := range links {
		utm, err := json.Marshal(link.UTM)
		if err != nil {
			return fmt.Errorf("failed to marshal utm: %w", err)
		}
		batch.Queue(
			`INSERT INTO link_metadata (campaign_id, prospect_id, position, original_url, rewritten_url, anchor_text, utm)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			campaignID, prospectID, link.Position, link.OriginalURL, link.RewrittenURL, link.AnchorText, utm,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save link metadata: %w", err)
	}
	return tx.Commit(ctx)
}

// SaveScheduledSends stores schedule entries. Re-scheduling a prospect in the same
// campaign replaces its pending send.
func (db *DB) SaveScheduledSends(ctx context.Context, entries []types.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		status := e.Status
		if status == "" {
			status = types.SendStatusScheduled
		}
		batch.Queue(
			`INSERT INTO scheduled_sends (id, campaign_id, prospect_id, email, tracking_id, subject, send_at, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (campaign_id, prospect_id) DO UPDATE
			 SET email = $4, tracking_id = $5, subject = $6, send_at = $7, status = $8,
			     message_id = NULL, sent_at = NULL, error = NULL`,
			uuid.New(), e.CampaignID, e.ProspectID, e.ProspectEmail, e.TrackingID, e.Subject, e.SendAt, status,
		)
	}
	if err := db.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save %d scheduled sends: %w", len(entries), err)
	}
	return nil
}
