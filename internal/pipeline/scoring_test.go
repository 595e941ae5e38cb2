package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

func testSegments() []types.Segment {
	return []types.Segment{
		{ID: "general", Name: "Everyone else"},
		{ID: "fintech", Name: "Fintech", Criteria: types.SegmentCriteria{Industries: []string{"Financial Services", "fintech"}}},
		{ID: "eng", Name: "Engineering", Criteria: types.SegmentCriteria{Roles: []string{"CTO", "engineering"}}},
		{ID: "eng-fin", Name: "Fintech engineering", Criteria: types.SegmentCriteria{
			Industries: []string{"fintech"}, Roles: []string{"cto"}, CompanySizes: []string{"51-200"},
		}},
	}
}

func TestAssignSegment(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name     string
		prospect types.Prospect
		research *types.ProspectResearch
		want     string
	}{
		{"no match falls back to first", types.Prospect{Industry: "Agriculture", Title: "Farmer"}, nil, "general"},
		{"industry match", types.Prospect{Industry: "FinTech"}, nil, "fintech"},
		{"role match is substring", types.Prospect{Title: "VP of Engineering"}, nil, "eng"},
		{"best total score wins", types.Prospect{Industry: "fintech", Title: "CTO", CompanySize: 120}, nil, "eng-fin"},
		{"tie goes to earlier segment", types.Prospect{Industry: "fintech", Title: "CTO"}, nil, "eng-fin"},
		{"research fills missing fields", types.Prospect{}, &types.ProspectResearch{Industry: "fintech"}, "fintech"},
		{"prospect fields beat research", types.Prospect{Industry: "Agriculture"}, &types.ProspectResearch{Industry: "fintech"}, "general"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignSegment(tt.prospect, tt.research, testSegments(), w)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestAssignSegment_TieOrder(t *testing.T) {
	segments := []types.Segment{
		{ID: "a", Criteria: types.SegmentCriteria{Industries: []string{"saas"}}},
		{ID: "b", Criteria: types.SegmentCriteria{Industries: []string{"saas"}}},
	}
	got := AssignSegment(types.Prospect{Industry: "SaaS"}, nil, segments, DefaultWeights())
	assert.Equal(t, "a", got.ID)
}

func TestAssignSegment_HighPriorityBonus(t *testing.T) {
	segments := []types.Segment{
		{ID: "a", Criteria: types.SegmentCriteria{Industries: []string{"saas"}}},
		{ID: "b", Priority: "high", Criteria: types.SegmentCriteria{Industries: []string{"saas"}}},
		{ID: "c", Priority: "high", Criteria: types.SegmentCriteria{Industries: []string{"retail"}}},
	}
	w := DefaultWeights()

	assert.Equal(t, "b", AssignSegment(types.Prospect{Industry: "saas"}, nil, segments, w).ID)
	// Unmatched prospects go to the first high-priority segment, not the first segment
	assert.Equal(t, "b", AssignSegment(types.Prospect{Industry: "mining"}, nil, segments, w).ID)
	// A full match outscores the bonus alone
	assert.Equal(t, "c", AssignSegment(types.Prospect{Industry: "retail"}, nil, segments, w).ID)

	plain := []types.Segment{segments[0], {ID: "d", Criteria: types.SegmentCriteria{Industries: []string{"retail"}}}}
	assert.Equal(t, "a", AssignSegment(types.Prospect{Industry: "mining"}, nil, plain, w).ID)
}

func TestAssignSegment_Empty(t *testing.T) {
	assert.Equal(t, types.Segment{}, AssignSegment(types.Prospect{}, nil, nil, DefaultWeights()))
}

func TestMatchesSize(t *testing.T) {
	assert.True(t, matchesSize(120, []string{"smb"}))
	assert.True(t, matchesSize(120, []string{"51-200"}))
	assert.True(t, matchesSize(5000, []string{"1,000+"}))
	assert.False(t, matchesSize(20, []string{"51-200", "enterprise"}))
	assert.False(t, matchesSize(0, []string{"startup"}))
	assert.False(t, matchesSize(100, []string{"200-50", "lots"}))
}

func TestSelectSamples(t *testing.T) {
	research := []types.ProspectResearch{
		{ProspectID: "p1", Industry: "retail", Title: "cto"},
		{ProspectID: "p2", Industry: "fintech", Title: "cfo"},
		{ProspectID: "p3", Industry: "fintech", Title: "cto"},
		{ProspectID: "p4", Industry: "mining", Title: "ceo"},
	}
	seg := types.Segment{Criteria: types.SegmentCriteria{Industries: []string{"fintech"}, Roles: []string{"cto"}}}

	samples := SelectSamples(research, seg, DefaultWeights())
	require.Len(t, samples, 3)
	assert.Equal(t, "p3", samples[0].ProspectID)
	assert.Equal(t, "p2", samples[1].ProspectID)
	assert.Equal(t, "p1", samples[2].ProspectID)

	w := DefaultWeights()
	w.SampleCount = 10
	assert.Len(t, SelectSamples(research, seg, w), 4)
	assert.Empty(t, SelectSamples(nil, seg, DefaultWeights()))
}
