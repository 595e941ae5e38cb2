// Package steps provides stage definitions and dependency validation
// for the campaign content pipeline.
package steps

import (
	"context"
	"fmt"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
)

// Stage names, also used as the suffix of the stage result key
const (
	StageEssence         = "essence"
	StageResearch        = "research"
	StageSegmentation    = "segmentation"
	StagePitch           = "pitch"
	StagePersonalization = "personalization"
	StageHTML            = "html"
)

// StageDefinition defines metadata for a pipeline stage
type StageDefinition struct {
	Name          string
	Index         int // 1-based position
	StartProgress int
	EndProgress   int
	Dependencies  []string
}

// Stages lists every stage in execution order
var Stages = []StageDefinition{
	{
		Name:          StageEssence,
		Index:         1,
		StartProgress: 0,
		EndProgress:   15,
		Dependencies:  []string{},
	},
	{
		Name:          StageResearch,
		Index:         2,
		StartProgress: 15,
		EndProgress:   35,
		Dependencies:  []string{StageEssence},
	},
	{
		Name:          StageSegmentation,
		Index:         3,
		StartProgress: 35,
		EndProgress:   50,
		Dependencies:  []string{StageEssence, StageResearch},
	},
	{
		Name:          StagePitch,
		Index:         4,
		StartProgress: 50,
		EndProgress:   65,
		Dependencies:  []string{StageEssence, StageResearch, StageSegmentation},
	},
	{
		Name:          StagePersonalization,
		Index:         5,
		StartProgress: 65,
		EndProgress:   80,
		Dependencies:  []string{StageResearch, StageSegmentation, StagePitch},
	},
	{
		Name:          StageHTML,
		Index:         6,
		StartProgress: 80,
		EndProgress:   100,
		Dependencies:  []string{StagePersonalization},
	},
}

// StageRegistry indexes Stages by name
var StageRegistry = func() map[string]StageDefinition {
	registry := make(map[string]StageDefinition, len(Stages))
	for _, def := range Stages {
		registry[def.Name] = def
	}
	return registry
}()

// TotalStages is the number of stages in a run
var TotalStages = len(Stages)

// DependencyError represents a dependency validation error
type DependencyError struct {
	Stage               string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies for %s: %v", e.Stage, e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of a stage has a persisted result
func ValidateDependencies(ctx context.Context, store kv.Store, keys kv.Keys, campaignID, stageName string) error {
	def, ok := StageRegistry[stageName]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stageName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		exists, err := store.Exists(ctx, keys.PipelineStage(campaignID, dep))
		if err != nil {
			return fmt.Errorf("failed to check dependency %s: %w", dep, err)
		}
		if !exists {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Stage:               stageName,
			MissingDependencies: missing,
		}
	}

	return nil
}

// Progress interpolates a stage's progress window for done of total items
func (d StageDefinition) Progress(done, total int) int {
	if total <= 0 || done >= total {
		return d.EndProgress
	}
	if done <= 0 {
		return d.StartProgress
	}
	return d.StartProgress + (d.EndProgress-d.StartProgress)*done/total
}
