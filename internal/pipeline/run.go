// Package pipeline provides the orchestration of campaign content generation:
// six sequential stages with persisted progress, followed by tracking and scheduling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Champ-Deep/ChampMail-sub000/internal/config"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline/steps"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// stageScheduling is reported as the current stage after rendering, while sends are scheduled
const stageScheduling = "scheduling"

// RunRequest holds the inputs of one pipeline run
type RunRequest struct {
	CampaignID     string
	ProspectListID string
	Description    string
	TargetAudience string
	Style          string
	Goals          string

	// UTM parameters applied to every link before click wrapping; nil disables tagging
	UTM           *types.UTMParams
	PreserveUTM   bool
	LinkOverrides []types.LinkOverride
}

// Result is the output of a completed run
type Result struct {
	Run      types.PipelineRun
	Emails   []types.RenderedEmail
	Schedule []types.ScheduleEntry
}

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	RunID      string `json:"run_id"`
	CampaignID string `json:"campaign_id"`
	Stage      string `json:"stage"`
	Progress   int    `json:"progress"`
	Message    string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Deps are the collaborators of an Orchestrator
type Deps struct {
	Generator  ContentGenerator
	Campaigns  CampaignStore
	Tracker    TrackingIssuer
	Scheduler  SendScheduler
	Status     *StatusStore
	Weights    *Weights
	Metrics    *metrics.Metrics
	Logger     logging.Logger
	OnProgress ProgressCallback
	Now        func() time.Time
}

// Orchestrator runs the pipeline. Runs for different campaigns may execute concurrently.
type Orchestrator struct {
	cfg        config.PipelineConfig
	generator  ContentGenerator
	campaigns  CampaignStore
	tracker    TrackingIssuer
	scheduler  SendScheduler
	status     *StatusStore
	weights    Weights
	metrics    *metrics.Metrics
	logger     logging.Logger
	onProgress ProgressCallback
	now        func() time.Time
}

// New creates an orchestrator. Zero fan-out settings fall back to batches of 10 with 3 concurrent calls.
func New(cfg config.PipelineConfig, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Generator == nil:
		return nil, fmt.Errorf("content generator is required")
	case deps.Campaigns == nil:
		return nil, fmt.Errorf("campaign store is required")
	case deps.Tracker == nil:
		return nil, fmt.Errorf("tracking issuer is required")
	case deps.Scheduler == nil:
		return nil, fmt.Errorf("send scheduler is required")
	case deps.Status == nil:
		return nil, fmt.Errorf("status store is required")
	}
	if cfg.ResearchBatchSize <= 0 {
		cfg.ResearchBatchSize = 10
	}
	if cfg.ResearchConcurrency <= 0 {
		cfg.ResearchConcurrency = 3
	}
	if cfg.HTMLConcurrency <= 0 {
		cfg.HTMLConcurrency = 3
	}
	weights := DefaultWeights()
	if deps.Weights != nil {
		weights = *deps.Weights
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{
		cfg:        cfg,
		generator:  deps.Generator,
		campaigns:  deps.Campaigns,
		tracker:    deps.Tracker,
		scheduler:  deps.Scheduler,
		status:     deps.Status,
		weights:    weights,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		onProgress: deps.OnProgress,
		now:        deps.Now,
	}, nil
}

// Status returns the campaign's current run
func (o *Orchestrator) Status(ctx context.Context, campaignID string) (*types.PipelineRun, bool, error) {
	return o.status.GetRun(ctx, campaignID)
}

// runState is the mutable state of one run
type runState struct {
	mu     sync.Mutex
	saveMu sync.Mutex // orders status writes so persisted progress never goes backwards
	run    types.PipelineRun
	req    RunRequest
	log    logging.Logger

	prospects []types.Prospect
	essence   *types.Essence
	research  []types.ProspectResearch
	segments  []types.Segment
	pitches   types.PitchBySegment
	emails    []types.PersonalizedEmail
	rendered  []types.RenderedEmail
}

// Run executes every stage for a campaign, then issues tracking URLs and schedules sends.
// Fatal errors are recorded on the run, revert the campaign to draft and are returned
// as *StageError.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if strings.TrimSpace(req.CampaignID) == "" {
		return nil, fmt.Errorf("campaign id is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, ErrEmptyDescription
	}

	runID := uuid.New().String()
	acquired, err := o.status.AcquireLock(ctx, req.CampaignID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		released, err := o.status.ReleaseLock(context.WithoutCancel(ctx), req.CampaignID, runID)
		if err != nil {
			o.logger.WithError(err).WithField("campaign_id", req.CampaignID).Warn("Failed to release run lock")
		} else if !released {
			o.logger.WithFields(logging.Fields{"campaign_id": req.CampaignID, "run_id": runID}).
				Warn("Run lock was no longer held by this run")
		}
	}()

	st := &runState{
		req: req,
		run: types.PipelineRun{
			RunID:       runID,
			CampaignID:  req.CampaignID,
			Status:      types.RunStatusPending,
			TotalStages: steps.TotalStages,
			StartedAt:   o.now().UTC(),
		},
		log: o.logger.WithFields(logging.Fields{"campaign_id": req.CampaignID, "run_id": runID}),
	}
	if err := o.status.SaveRun(ctx, &st.run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	if err := o.status.ClearStageResults(ctx, req.CampaignID); err != nil {
		return nil, o.fail(ctx, st, &StageError{Kind: KindPersistence, Err: err})
	}

	st.run.Status = types.RunStatusRunning
	if err := o.status.SaveRun(ctx, &st.run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	o.setCampaignStatus(ctx, st, types.CampaignStatusActive)
	st.log.WithField("prospect_list_id", req.ProspectListID).Info("Pipeline run started")

	if serr := o.loadProspects(ctx, st); serr != nil {
		return nil, o.fail(ctx, st, serr)
	}

	stages := []struct {
		name string
		exec func(context.Context, *runState) StageResult
		save func(*runState) any
	}{
		{steps.StageEssence, o.runEssence, func(s *runState) any { return s.essence }},
		{steps.StageResearch, o.runResearch, func(s *runState) any { return s.research }},
		{steps.StageSegmentation, o.runSegmentation, func(s *runState) any { return s.segments }},
		{steps.StagePitch, o.runPitches, func(s *runState) any { return s.pitches }},
		{steps.StagePersonalization, o.runPersonalization, func(s *runState) any { return s.emails }},
		{steps.StageHTML, o.runHTML, func(s *runState) any { return s.rendered }},
	}

	for _, stage := range stages {
		def := steps.StageRegistry[stage.name]
		if err := o.status.ValidateDependencies(ctx, req.CampaignID, stage.name); err != nil {
			return nil, o.fail(ctx, st, &StageError{Kind: KindPersistence, Stage: stage.name, Err: err})
		}
		o.enterStage(ctx, st, def)

		started := time.Now()
		result := stage.exec(ctx, st)
		o.metrics.StageDuration(stage.name, time.Since(started))

		if ctx.Err() != nil && result.Outcome != OutcomeFatal {
			result = fatal(KindCancelled, ctx.Err())
		}

		switch result.Outcome {
		case OutcomeFatal:
			return nil, o.fail(ctx, st, &StageError{Kind: result.Kind, Stage: stage.name, Err: result.Err})
		case OutcomeRecovered:
			st.log.WithFields(logging.Fields{"stage": stage.name, "recovered": result.Recovered}).
				Warn("Stage completed with fallbacks")
		case OutcomeOK:
			st.log.WithField("stage", stage.name).Debug("Stage completed")
		}

		if err := o.status.SaveStageResult(ctx, req.CampaignID, stage.name, stage.save(st)); err != nil {
			return nil, o.fail(ctx, st, &StageError{Kind: KindPersistence, Stage: stage.name, Err: err})
		}
		o.advance(ctx, st, def.EndProgress, fmt.Sprintf("Stage %d/%d %s complete", def.Index, steps.TotalStages, def.Name))
	}

	o.enterScheduling(ctx, st)
	entries, serr := o.finalize(ctx, st)
	if serr != nil {
		return nil, o.fail(ctx, st, serr)
	}

	o.complete(ctx, st)
	return &Result{Run: st.snapshot(), Emails: st.rendered, Schedule: entries}, nil
}

// loadProspects resolves the prospect list and drops anyone no longer contactable
func (o *Orchestrator) loadProspects(ctx context.Context, st *runState) *StageError {
	prospects, err := o.campaigns.LoadProspects(ctx, st.req.ProspectListID)
	if err != nil {
		return &StageError{Kind: KindProspectLoad, Err: err}
	}
	for _, p := range prospects {
		switch p.Status {
		case types.ProspectStatusBounced, types.ProspectStatusDoNotContact, types.ProspectStatusUnsubscribed:
			continue
		}
		if strings.TrimSpace(p.Email) == "" {
			continue
		}
		st.prospects = append(st.prospects, p)
	}
	if len(st.prospects) == 0 {
		return &StageError{Kind: KindValidation, Err: ErrNoProspects}
	}
	st.log.WithField("prospects", len(st.prospects)).Info("Loaded prospects")
	return nil
}

func (o *Orchestrator) enterStage(ctx context.Context, st *runState, def steps.StageDefinition) {
	st.mu.Lock()
	st.run.CurrentStage = def.Name
	st.run.StageIndex = def.Index
	st.mu.Unlock()
	o.advance(ctx, st, def.StartProgress, fmt.Sprintf("Stage %d/%d: %s", def.Index, steps.TotalStages, def.Name))
}

func (o *Orchestrator) enterScheduling(ctx context.Context, st *runState) {
	st.mu.Lock()
	st.run.CurrentStage = stageScheduling
	st.mu.Unlock()
	o.advance(ctx, st, 100, "Issuing tracking links and scheduling sends")
}

// advance raises progress (never lowers it), persists the run and notifies the callback in order
func (o *Orchestrator) advance(ctx context.Context, st *runState, progress int, message string) {
	st.saveMu.Lock()
	st.mu.Lock()
	if progress > st.run.ProgressPercent {
		st.run.ProgressPercent = progress
	}
	snapshot := st.run
	st.mu.Unlock()

	defer st.saveMu.Unlock()
	if err := o.status.SaveRun(ctx, &snapshot); err != nil {
		st.log.WithError(err).Warn("Failed to persist run progress")
	}
	if o.onProgress != nil {
		o.onProgress(ProgressEvent{
			RunID:      snapshot.RunID,
			CampaignID: snapshot.CampaignID,
			Stage:      snapshot.CurrentStage,
			Progress:   snapshot.ProgressPercent,
			Message:    message,
		})
	}
}

func (o *Orchestrator) complete(ctx context.Context, st *runState) {
	st.mu.Lock()
	completed := o.now().UTC()
	st.run.Status = types.RunStatusCompleted
	st.run.ProgressPercent = 100
	st.run.CompletedAt = &completed
	snapshot := st.run
	st.mu.Unlock()

	if err := o.status.SaveRun(ctx, &snapshot); err != nil {
		st.log.WithError(err).Warn("Failed to persist completed run")
	}
	o.setCampaignStatus(ctx, st, types.CampaignStatusScheduled)
	o.metrics.PipelineRun(types.RunStatusCompleted)
	st.log.WithField("emails", len(st.rendered)).Info("Pipeline run completed")
}

// fail records a fatal error, reverts the campaign to draft and returns the error
func (o *Orchestrator) fail(ctx context.Context, st *runState, serr *StageError) error {
	ctx = context.WithoutCancel(ctx)
	if errors.Is(serr.Err, context.Canceled) || errors.Is(serr.Err, context.DeadlineExceeded) {
		serr.Kind = KindCancelled
	}

	st.mu.Lock()
	completed := o.now().UTC()
	st.run.Status = types.RunStatusFailed
	st.run.Error = serr.Error()
	st.run.CompletedAt = &completed
	if serr.Stage == "" {
		serr.Stage = st.run.CurrentStage
	}
	snapshot := st.run
	st.mu.Unlock()

	if err := o.status.SaveRun(ctx, &snapshot); err != nil {
		st.log.WithError(err).Warn("Failed to persist failed run")
	}
	o.setCampaignStatus(ctx, st, types.CampaignStatusDraft)
	o.metrics.PipelineRun(types.RunStatusFailed)
	st.log.WithFields(logging.Fields{"stage": serr.Stage, "kind": serr.Kind}).WithError(serr.Err).Error("Pipeline run failed")
	return serr
}

func (o *Orchestrator) setCampaignStatus(ctx context.Context, st *runState, status string) {
	if err := o.campaigns.SetCampaignStatus(ctx, st.req.CampaignID, status); err != nil {
		st.log.WithError(err).WithField("campaign_status", status).Warn("Failed to update campaign status")
	}
}

func (st *runState) snapshot() types.PipelineRun {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.run
}

func (st *runState) goals() types.SegmentGoals {
	return types.SegmentGoals{
		TargetAudience: st.req.TargetAudience,
		Style:          st.req.Style,
		Goals:          st.req.Goals,
	}
}
