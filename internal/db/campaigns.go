package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Campaign is a campaign row
type Campaign struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Status         string           `json:"status"`
	ProspectListID string           `json:"prospect_list_id"`
	UTM            *types.UTMParams `json:"utm,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// UpsertCampaign creates or renames a campaign, keeping its status
func (db *DB) UpsertCampaign(ctx context.Context, c *Campaign) error {
	var utm []byte
	if c.UTM != nil && !c.UTM.IsZero() {
		var err error
		if utm, err = json.Marshal(c.UTM); err != nil {
			return fmt.Errorf("failed to marshal utm: %w", err)
		}
	}
	status := c.Status
	if status == "" {
		status = types.CampaignStatusDraft
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO campaigns (id, name, status, prospect_list_id, utm)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET name = $2, prospect_list_id = $4, utm = $5, updated_at = NOW()`,
		c.ID, c.Name, status, c.ProspectListID, utm,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert campaign %s: %w", c.ID, err)
	}
	return nil
}

// GetCampaign loads a campaign, returning ErrNotFound when it does not exist
func (db *DB) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	var c Campaign
	var utm []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, status, prospect_list_id, utm, created_at, updated_at
		 FROM campaigns WHERE id = $1`,
		campaignID,
	).Scan(&c.ID, &c.Name, &c.Status, &c.ProspectListID, &utm, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign %s: %w", campaignID, err)
	}
	if len(utm) > 0 {
		c.UTM = &types.UTMParams{}
		if err := json.Unmarshal(utm, c.UTM); err != nil {
			return nil, fmt.Errorf("failed to decode campaign utm: %w", err)
		}
	}
	return &c, nil
}

// SetCampaignStatus updates a campaign's lifecycle status
func (db *DB) SetCampaignStatus(ctx context.Context, campaignID, status string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, campaignID,
	)
	if err != nil {
		return fmt.Errorf("failed to set campaign %s status: %w", campaignID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
