package pipeline

import (
	"context"
	"fmt"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline/steps"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// StatusStore persists run status and stage results in the shared store
type StatusStore struct {
	store kv.Store
	keys  kv.Keys
	ttls  kv.TTLs
}

// NewStatusStore creates a status store
func NewStatusStore(store kv.Store, keys kv.Keys, ttls kv.TTLs) *StatusStore {
	if ttls == (kv.TTLs{}) {
		ttls = kv.DefaultTTLs()
	}
	return &StatusStore{store: store, keys: keys, ttls: ttls}
}

// SaveRun overwrites the campaign's current run
func (s *StatusStore) SaveRun(ctx context.Context, run *types.PipelineRun) error {
	return kv.SetJSON(ctx, s.store, s.keys.PipelineStatus(run.CampaignID), run, s.ttls.Pipeline)
}

// GetRun returns the campaign's current run; ok is false when none is retained
func (s *StatusStore) GetRun(ctx context.Context, campaignID string) (*types.PipelineRun, bool, error) {
	var run types.PipelineRun
	ok, err := kv.GetJSON(ctx, s.store, s.keys.PipelineStatus(campaignID), &run)
	if err != nil || !ok {
		return nil, false, err
	}
	return &run, true, nil
}

// SaveStageResult stores a stage's output for later stages and pollers
func (s *StatusStore) SaveStageResult(ctx context.Context, campaignID, stage string, result any) error {
	if err := kv.SetJSON(ctx, s.store, s.keys.PipelineStage(campaignID, stage), result, s.ttls.Pipeline); err != nil {
		return fmt.Errorf("failed to save %s result: %w", stage, err)
	}
	return nil
}

// LoadStageResult decodes a stage's output into dst
func (s *StatusStore) LoadStageResult(ctx context.Context, campaignID, stage string, dst any) (bool, error) {
	return kv.GetJSON(ctx, s.store, s.keys.PipelineStage(campaignID, stage), dst)
}

// ClearStageResults removes results left by an earlier run of the campaign
func (s *StatusStore) ClearStageResults(ctx context.Context, campaignID string) error {
	for _, def := range steps.Stages {
		if err := s.store.Del(ctx, s.keys.PipelineStage(campaignID, def.Name)); err != nil {
			return fmt.Errorf("failed to clear %s result: %w", def.Name, err)
		}
	}
	return nil
}

// ValidateDependencies refuses a stage whose predecessors have no persisted result
func (s *StatusStore) ValidateDependencies(ctx context.Context, campaignID, stage string) error {
	return steps.ValidateDependencies(ctx, s.store, s.keys, campaignID, stage)
}

// AcquireLock claims the campaign's single active run slot
func (s *StatusStore) AcquireLock(ctx context.Context, campaignID, runID string) (bool, error) {
	return s.store.SetNX(ctx, s.keys.PipelineLock(campaignID), runID, s.ttls.RunLock)
}

// ReleaseLock frees the campaign's run slot if runID still holds it.
// released is false when the lock expired or now belongs to another run.
func (s *StatusStore) ReleaseLock(ctx context.Context, campaignID, runID string) (released bool, err error) {
	return s.store.DelIfEqual(ctx, s.keys.PipelineLock(campaignID), runID)
}
