package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/kv/kvtest"
)

func TestStageRegistry(t *testing.T) {
	expected := []string{
		StageEssence, StageResearch, StageSegmentation,
		StagePitch, StagePersonalization, StageHTML,
	}
	require.Len(t, Stages, len(expected))

	for i, name := range expected {
		def, ok := StageRegistry[name]
		require.True(t, ok, "Stage %s should be in registry", name)
		assert.Equal(t, name, def.Name)
		assert.Equal(t, i+1, def.Index)
		assert.Equal(t, Stages[i], def)
	}
}

func TestStageProgressWindows(t *testing.T) {
	checkpoints := []int{15, 35, 50, 65, 80, 100}
	prev := 0
	for i, def := range Stages {
		assert.Equal(t, prev, def.StartProgress, def.Name)
		assert.Equal(t, checkpoints[i], def.EndProgress, def.Name)
		prev = def.EndProgress
	}
}

func TestStageDefinition_Progress(t *testing.T) {
	research := StageRegistry[StageResearch]
	assert.Equal(t, 15, research.Progress(0, 20))
	assert.Equal(t, 25, research.Progress(10, 20))
	assert.Equal(t, 35, research.Progress(20, 20))
	assert.Equal(t, 35, research.Progress(0, 0))
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Stage:               "pitch",
		MissingDependencies: []string{"essence", "research"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Equal(t, "pitch", err.Stage)
}

func TestValidateDependencies(t *testing.T) {
	store, _ := kvtest.NewStore(t)
	keys := kv.Keys{}
	ctx := context.Background()

	err := ValidateDependencies(ctx, store, keys, "c1", "unknown_stage")
	assert.ErrorContains(t, err, "unknown stage")

	require.NoError(t, ValidateDependencies(ctx, store, keys, "c1", StageEssence))

	err = ValidateDependencies(ctx, store, keys, "c1", StageSegmentation)
	var depErr *DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, []string{StageEssence, StageResearch}, depErr.MissingDependencies)

	require.NoError(t, store.Set(ctx, keys.PipelineStage("c1", StageEssence), "{}", 0))
	require.NoError(t, store.Set(ctx, keys.PipelineStage("c1", StageResearch), "[]", 0))
	assert.NoError(t, ValidateDependencies(ctx, store, keys, "c1", StageSegmentation))
}
