package types

import "time"

// TrackingURLs are the signed URLs embedded in one outbound email
type TrackingURLs struct {
	TrackingID     string `json:"tracking_id"`
	Signature      string `json:"signature"`
	PixelURL       string `json:"pixel_url"`
	ClickBaseURL   string `json:"click_base_url"`
	UnsubscribeURL string `json:"unsubscribe_url"`
}

// TrackingMapping binds a tracking ID to the campaign and prospect it was issued for
type TrackingMapping struct {
	CampaignID string    `json:"campaign_id"`
	ProspectID string    `json:"prospect_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Engagement event types
const (
	EventOpen  = "open"
	EventClick = "click"
)

// EngagementEvent is an append-only record of an open or click
type EngagementEvent struct {
	Type       string    `json:"type"`
	TrackingID string    `json:"tracking_id"`
	CampaignID string    `json:"campaign_id"`
	ProspectID string    `json:"prospect_id"`
	URL        string    `json:"url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	IsFirst    bool      `json:"is_first"`
}

// UTMParams are attribution query parameters appended to outbound links
type UTMParams struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`
}

// IsZero reports whether no parameter is set
func (u UTMParams) IsZero() bool {
	return u == UTMParams{}
}

// Merge returns u with every non-empty field of override applied on top
func (u UTMParams) Merge(override UTMParams) UTMParams {
	if override.Source != "" {
		u.Source = override.Source
	}
	if override.Medium != "" {
		u.Medium = override.Medium
	}
	if override.Campaign != "" {
		u.Campaign = override.Campaign
	}
	if override.Term != "" {
		u.Term = override.Term
	}
	if override.Content != "" {
		u.Content = override.Content
	}
	return u
}

// LinkOverride applies UTM values to links whose URL contains Match
type LinkOverride struct {
	Match  string    `json:"match"`
	Params UTMParams `json:"params"`
}

// LinkMetadata describes one rewritten link for later persistence
type LinkMetadata struct {
	OriginalURL  string    `json:"original_url"`
	RewrittenURL string    `json:"rewritten_url"`
	AnchorText   string    `json:"anchor_text"`
	Position     int       `json:"position"`
	UTM          UTMParams `json:"utm"`
}

// Stats counters kept per campaign
const (
	StatOpens        = "opens"
	StatClicks       = "clicks"
	StatUniqueOpens  = "unique_opens"
	StatUniqueClicks = "unique_clicks"
	StatBounces      = "bounces"
	StatUnsubscribes = "unsubscribes"
)

// AllStats lists every per-campaign counter in display order
var AllStats = []string{StatOpens, StatClicks, StatUniqueOpens, StatUniqueClicks, StatBounces, StatUnsubscribes}
