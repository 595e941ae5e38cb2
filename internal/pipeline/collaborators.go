package pipeline

import (
	"context"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// ContentGenerator produces every AI-generated artifact of a run
type ContentGenerator interface {
	ExtractEssence(ctx context.Context, description string, goals types.SegmentGoals) (*types.Essence, error)
	ResearchProspect(ctx context.Context, prospect types.Prospect) (*types.ProspectResearch, error)
	Segment(ctx context.Context, essence *types.Essence, research []types.ProspectResearch, goals types.SegmentGoals) ([]types.Segment, error)
	GeneratePitch(ctx context.Context, essence *types.Essence, segment types.Segment, samples []types.ProspectResearch) (*types.Pitch, error)
	RenderHTML(ctx context.Context, email types.PersonalizedEmail, essence *types.Essence) (string, error)
}

// CampaignStore is the relational store of campaigns, prospects and generated content
type CampaignStore interface {
	LoadProspects(ctx context.Context, listID string) ([]types.Prospect, error)
	SetCampaignStatus(ctx context.Context, campaignID, status string) error
	SaveGeneratedEmail(ctx context.Context, campaignID, trackingID string, email types.RenderedEmail) error
	SaveLinkMetadata(ctx context.Context, campaignID, prospectID string, links []types.LinkMetadata) error
	SaveScheduledSends(ctx context.Context, entries []types.ScheduleEntry) error
}

// TrackingIssuer issues signed tracking URLs
type TrackingIssuer interface {
	GenerateTrackingURLs(ctx context.Context, campaignID, prospectID string) (*types.TrackingURLs, error)
}

// SendScheduler assigns send times
type SendScheduler interface {
	ScheduleCampaignSends(ctx context.Context, campaignID string, sends []types.SendRequest) ([]types.ScheduleEntry, error)
}
