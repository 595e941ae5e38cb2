package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProspect_EmailDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane@Acme.CO.UK", "acme.co.uk"},
		{"bob@example.com", "example.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, Prospect{Email: tt.email}.EmailDomain())
		})
	}
}

func TestProspect_FullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", Prospect{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", Prospect{FirstName: "Jane"}.FullName())
	assert.Equal(t, "", Prospect{}.FullName())
}

func TestUTMParams_Merge(t *testing.T) {
	base := UTMParams{Source: "email", Medium: "outreach", Campaign: "launch"}
	merged := base.Merge(UTMParams{Campaign: "pricing", Content: "cta"})

	assert.Equal(t, "email", merged.Source)
	assert.Equal(t, "outreach", merged.Medium)
	assert.Equal(t, "pricing", merged.Campaign)
	assert.Equal(t, "cta", merged.Content)
	assert.True(t, UTMParams{}.IsZero())
	assert.False(t, merged.IsZero())
}

func TestPitch_Subject(t *testing.T) {
	assert.Equal(t, "", Pitch{}.Subject())
	assert.Equal(t, "first", Pitch{SubjectLines: []string{"first", "second"}}.Subject())
}

func TestPipelineRun_JSONFieldNames(t *testing.T) {
	run := PipelineRun{Status: RunStatusRunning, CurrentStage: "research", StageIndex: 2, TotalStages: 6, ProgressPercent: 20}
	data, err := json.Marshal(run)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "running", raw["status"])
	assert.Equal(t, "research", raw["current_step"])
	assert.EqualValues(t, 2, raw["step_index"])
	assert.EqualValues(t, 6, raw["total_steps"])
	assert.EqualValues(t, 20, raw["progress"])
	assert.NotContains(t, raw, "error")
	assert.False(t, run.IsTerminal())
}

func TestCompanySizeBucket(t *testing.T) {
	assert.Equal(t, "", CompanySizeBucket(0))
	assert.Equal(t, CompanySizeStartup, CompanySizeBucket(12))
	assert.Equal(t, CompanySizeStartup, CompanySizeBucket(50))
	assert.Equal(t, CompanySizeSMB, CompanySizeBucket(51))
	assert.Equal(t, CompanySizeMidMarket, CompanySizeBucket(1000))
	assert.Equal(t, CompanySizeEnterprise, CompanySizeBucket(5000))
}
