package types

import "time"

// Pipeline run statuses
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// PipelineRun is one execution of the content pipeline for a campaign
type PipelineRun struct {
	RunID           string     `json:"run_id"`
	CampaignID      string     `json:"campaign_id"`
	Status          string     `json:"status"`
	CurrentStage    string     `json:"current_step"`
	StageIndex      int        `json:"step_index"`
	TotalStages     int        `json:"total_steps"`
	ProgressPercent int        `json:"progress"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// IsTerminal reports whether the run has finished, successfully or not
func (r PipelineRun) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
