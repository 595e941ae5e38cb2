package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// DueSends returns up to limit scheduled sends whose time has come, earliest first
func (db *DB) DueSends(ctx context.Context, before time.Time, limit int) ([]types.DueSend, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id::text, s.campaign_id, s.prospect_id, s.tracking_id, s.email, s.subject, g.html, s.send_at
		 FROM scheduled_sends s
		 JOIN generated_emails g ON g.campaign_id = s.campaign_id AND g.prospect_id = s.prospect_id
		 JOIN prospects p ON p.id = s.prospect_id
		 WHERE s.status = $1 AND s.send_at <= $2 AND p.status = $3
		 ORDER BY s.send_at
		 LIMIT $4`,
		types.SendStatusScheduled, before, types.ProspectStatusActive, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due sends: %w", err)
	}
	sends, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.DueSend, error) {
		var s types.DueSend
		err := row.Scan(&s.ID, &s.CampaignID, &s.ProspectID, &s.TrackingID, &s.To, &s.Subject, &s.HTML, &s.SendAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan due sends: %w", err)
	}
	return sends, nil
}

// MarkSendSent records a delivered send and the Message-ID it went out with
func (db *DB) MarkSendSent(ctx context.Context, sendID, messageID string, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduled_sends SET status = $1, message_id = $2, sent_at = $3, error = NULL WHERE id = $4`,
		types.SendStatusSent, messageID, at, sendID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark send %s sent: %w", sendID, err)
	}
	return nil
}

// MarkSendFailed records a send the transport rejected
func (db *DB) MarkSendFailed(ctx context.Context, sendID, reason string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduled_sends SET status = $1, error = $2 WHERE id = $3`,
		types.SendStatusFailed, reason, sendID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark send %s failed: %w", sendID, err)
	}
	return nil
}

// MarkFirstOpen stamps the send's first open; later calls keep the original time
func (db *DB) MarkFirstOpen(ctx context.Context, campaignID, prospectID string, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduled_sends SET opened_at = COALESCE(opened_at, $1)
		 WHERE campaign_id = $2 AND prospect_id = $3`,
		at, campaignID, prospectID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark first open: %w", err)
	}
	return nil
}

// MarkFirstClick stamps the send's first click; later calls keep the original time
func (db *DB) MarkFirstClick(ctx context.Context, campaignID, prospectID string, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduled_sends SET clicked_at = COALESCE(clicked_at, $1)
		 WHERE campaign_id = $2 AND prospect_id = $3`,
		at, campaignID, prospectID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark first click: %w", err)
	}
	return nil
}

// FindSendByMessageID locates a delivered send, returning ErrNotFound when unknown
func (db *DB) FindSendByMessageID(ctx context.Context, messageID string) (*types.SendRecord, error) {
	var rec types.SendRecord
	err := db.pool.QueryRow(ctx,
		`SELECT id::text, campaign_id, prospect_id, message_id FROM scheduled_sends WHERE message_id = $1`,
		messageID,
	).Scan(&rec.ID, &rec.CampaignID, &rec.ProspectID, &rec.MessageID)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find send for message %s: %w", messageID, err)
	}
	return &rec, nil
}

// RecordBounce stores a bounce classification on the send
func (db *DB) RecordBounce(ctx context.Context, sendID string, c types.BounceClassification, at time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE scheduled_sends SET bounced_at = $1, bounce_type = $2, bounce_category = $3 WHERE id = $4`,
		at, c.BounceType, c.Category, sendID,
	)
	if err != nil {
		return fmt.Errorf("failed to record bounce on send %s: %w", sendID, err)
	}
	return nil
}
