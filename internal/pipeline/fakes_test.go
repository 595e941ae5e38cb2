package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

var errGenerator = errors.New("generator unavailable")

type fakeGenerator struct {
	mu sync.Mutex

	essenceErr   error
	segments     []types.Segment
	segmentErr   error
	failResearch map[string]bool // prospect ID -> fail
	pitchErr     error
	htmlErr      error

	researchCalls int
	inFlight      int
	maxInFlight   int
	pitchSamples  map[string][]types.ProspectResearch
	lastGoals     types.SegmentGoals
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		segments: []types.Segment{{
			ID:       "seg-1",
			Name:     "Engineering leaders",
			Criteria: types.SegmentCriteria{Industries: []string{"software"}, Roles: []string{"cto"}},
		}},
		failResearch: map[string]bool{},
		pitchSamples: map[string][]types.ProspectResearch{},
	}
}

func (f *fakeGenerator) ExtractEssence(_ context.Context, description string, goals types.SegmentGoals) (*types.Essence, error) {
	if f.essenceErr != nil {
		return nil, f.essenceErr
	}
	f.lastGoals = goals
	return &types.Essence{
		ValuePropositions: []string{"Ship " + description},
		PainPoints:        []string{"Slow releases"},
		Tone:              "friendly",
		CallToAction:      "Open to a quick chat?",
		TargetPersona:     "CTO",
	}, nil
}

func (f *fakeGenerator) ResearchProspect(_ context.Context, p types.Prospect) (*types.ProspectResearch, error) {
	f.mu.Lock()
	f.researchCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	fail := f.failResearch[p.ID]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if fail {
		return nil, errGenerator
	}
	return &types.ProspectResearch{
		Summary:    p.Company + " is growing",
		RecentNews: p.Company + " raised a Series B",
		Industry:   p.Industry,
		Title:      p.Title,
		Company:    p.Company,
	}, nil
}

func (f *fakeGenerator) Segment(context.Context, *types.Essence, []types.ProspectResearch, types.SegmentGoals) ([]types.Segment, error) {
	if f.segmentErr != nil {
		return nil, f.segmentErr
	}
	out := make([]types.Segment, len(f.segments))
	copy(out, f.segments)
	return out, nil
}

func (f *fakeGenerator) GeneratePitch(_ context.Context, _ *types.Essence, seg types.Segment, samples []types.ProspectResearch) (*types.Pitch, error) {
	f.mu.Lock()
	f.pitchSamples[seg.ID] = samples
	f.mu.Unlock()
	if f.pitchErr != nil {
		return nil, f.pitchErr
	}
	return &types.Pitch{
		SubjectLines: []string{"{{firstName}}, a faster way to ship at {{companyName}}"},
		Body:         "Hi {{firstName}},\n\nSaw that {{recentNews}}.\n\nOpen to a quick chat?",
	}, nil
}

func (f *fakeGenerator) RenderHTML(_ context.Context, email types.PersonalizedEmail, _ *types.Essence) (string, error) {
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	body := strings.ReplaceAll(email.Body, "\n", "<br>")
	return fmt.Sprintf(`<html><body><p>%s</p><a href="https://acme.example/launch">Read more</a><img src="{{tracking_url}}"><a href="{{unsubscribe_url}}">Unsubscribe</a></body></html>`, body), nil
}

type fakeCampaigns struct {
	mu sync.Mutex

	prospects []types.Prospect
	loadErr   error
	saveErr   error

	statuses  []string
	generated map[string]types.RenderedEmail
	tracking  map[string]string
	links     map[string][]types.LinkMetadata
	scheduled []types.ScheduleEntry
}

func newFakeCampaigns(prospects ...types.Prospect) *fakeCampaigns {
	return &fakeCampaigns{
		prospects: prospects,
		generated: map[string]types.RenderedEmail{},
		tracking:  map[string]string{},
		links:     map[string][]types.LinkMetadata{},
	}
}

func (f *fakeCampaigns) LoadProspects(context.Context, string) ([]types.Prospect, error) {
	return f.prospects, f.loadErr
}

func (f *fakeCampaigns) SetCampaignStatus(_ context.Context, _ string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeCampaigns) lastStatus() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1]
}

func (f *fakeCampaigns) SaveGeneratedEmail(_ context.Context, _ string, trackingID string, email types.RenderedEmail) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated[email.ProspectID] = email
	f.tracking[email.ProspectID] = trackingID
	return nil
}

func (f *fakeCampaigns) SaveLinkMetadata(_ context.Context, _ string, prospectID string, links []types.LinkMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[prospectID] = links
	return nil
}

func (f *fakeCampaigns) SaveScheduledSends(_ context.Context, entries []types.ScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, entries...)
	return nil
}
