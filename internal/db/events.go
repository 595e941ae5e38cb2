package db

import (
	"context"
	"fmt"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// RecordEvent appends an engagement event
func (db *DB) RecordEvent(ctx context.Context, e types.EngagementEvent) error {
	var url *string
	if e.URL != "" {
		url = &e.URL
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO engagement_events (event_type, tracking_id, campaign_id, prospect_id, url, is_first, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Type, e.TrackingID, e.CampaignID, e.ProspectID, url, e.IsFirst, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Type, err)
	}
	return nil
}

// EventCounts returns the number of events per type for a campaign
func (db *DB) EventCounts(ctx context.Context, campaignID string) (map[string]int64, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM engagement_events WHERE campaign_id = $1 GROUP BY event_type`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var eventType string
		var n int64
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[eventType] = n
	}
	return counts, rows.Err()
}
