package types

import "time"

// Schedule entry statuses
const (
	SendStatusScheduled = "scheduled"
	SendStatusSent      = "sent"
	SendStatusFailed    = "failed"
)

// SendRequest is one generated email handed to the scheduler
type SendRequest struct {
	Prospect   Prospect `json:"prospect"`
	Subject    string   `json:"subject"`
	HTML       string   `json:"html,omitempty"`
	TrackingID string   `json:"tracking_id,omitempty"`
	Timezone   string   `json:"timezone,omitempty"`
}

// ScheduleEntry is one planned send
type ScheduleEntry struct {
	CampaignID    string    `json:"campaign_id"`
	ProspectID    string    `json:"prospect_id"`
	ProspectEmail string    `json:"prospect_email"`
	TrackingID    string    `json:"tracking_id,omitempty"`
	SendAt        time.Time `json:"send_at"`
	Subject       string    `json:"subject"`
	Status        string    `json:"status"`
}

// ScheduleSummary is the published view of a campaign's schedule
type ScheduleSummary struct {
	CampaignID string          `json:"campaign_id"`
	Total      int             `json:"total"`
	FirstSend  *time.Time      `json:"first_send"`
	LastSend   *time.Time      `json:"last_send"`
	CreatedAt  time.Time       `json:"created_at"`
	Entries    []ScheduleEntry `json:"entries,omitempty"`
}

// DueSend is a scheduled send ready for dispatch, as stored in the relational store
type DueSend struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	ProspectID string    `json:"prospect_id"`
	TrackingID string    `json:"tracking_id,omitempty"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	HTML       string    `json:"html"`
	SendAt     time.Time `json:"send_at"`
}
