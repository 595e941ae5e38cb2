package kv

import (
	"fmt"
	"time"
)

// TTLs holds the retention of every key family
type TTLs struct {
	Pipeline   time.Duration // run status and stage results
	Tracking   time.Duration // tracking ID mappings
	OpenDedup  time.Duration // first-open window per tracking ID
	ClickDedup time.Duration // first-click marker per campaign/prospect
	Schedule   time.Duration // published schedules and hourly counters
	RunLock    time.Duration // active-run lock per campaign
	MinuteRate time.Duration // dispatch per-minute counters
}

// DefaultTTLs returns the standard retention periods
func DefaultTTLs() TTLs {
	return TTLs{
		Pipeline:   24 * time.Hour,
		Tracking:   90 * 24 * time.Hour,
		OpenDedup:  time.Hour,
		ClickDedup: 90 * 24 * time.Hour,
		Schedule:   7 * 24 * time.Hour,
		RunLock:    24 * time.Hour,
		MinuteRate: 2 * time.Minute,
	}
}

// Keys builds store keys. Prefix is prepended verbatim, e.g. "staging:".
type Keys struct {
	Prefix string
}

// PipelineStatus is the key of a campaign's current PipelineRun
func (k Keys) PipelineStatus(campaignID string) string {
	return fmt.Sprintf("%spipeline:%s:status", k.Prefix, campaignID)
}

// PipelineStage is the key of one stage result for a campaign
func (k Keys) PipelineStage(campaignID, stage string) string {
	return fmt.Sprintf("%spipeline:%s:%s", k.Prefix, campaignID, stage)
}

// PipelineLock guards the single active run per campaign
func (k Keys) PipelineLock(campaignID string) string {
	return fmt.Sprintf("%spipeline:%s:lock", k.Prefix, campaignID)
}

// Tracking is the key of a tracking ID mapping
func (k Keys) Tracking(trackingID string) string {
	return fmt.Sprintf("%stracking:%s", k.Prefix, trackingID)
}

// TrackingStat is the key of one per-campaign engagement counter
func (k Keys) TrackingStat(campaignID, stat string) string {
	return fmt.Sprintf("%stracking:stats:%s:%s", k.Prefix, campaignID, stat)
}

// OpenDedup marks that a tracking ID was opened within the dedup window
func (k Keys) OpenDedup(trackingID string) string {
	return fmt.Sprintf("%stracking:dedup:open:%s", k.Prefix, trackingID)
}

// ClickDedup marks that a prospect has clicked in a campaign
func (k Keys) ClickDedup(campaignID, prospectID string) string {
	return fmt.Sprintf("%stracking:dedup:click:%s:%s", k.Prefix, campaignID, prospectID)
}

// CampaignSchedule is the key of a campaign's published schedule
func (k Keys) CampaignSchedule(campaignID string) string {
	return fmt.Sprintf("%scampaign:%s:schedule", k.Prefix, campaignID)
}

// ScheduleHour counts scheduled sends for a campaign in one UTC hour bucket
func (k Keys) ScheduleHour(campaignID string, bucket time.Time) string {
	return fmt.Sprintf("%scampaign:%s:hour:%s", k.Prefix, campaignID, bucket.UTC().Format("2006010215"))
}

// DispatchMinute counts dispatched sends for a campaign in one UTC minute
func (k Keys) DispatchMinute(campaignID string, minute time.Time) string {
	return fmt.Sprintf("%scampaign:%s:sent:%s", k.Prefix, campaignID, minute.UTC().Format("200601021504"))
}
