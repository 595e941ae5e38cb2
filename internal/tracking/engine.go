// Package tracking issues signed tracking identifiers, records opens and clicks,
// rewrites outbound links and processes bounce reports.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Champ-Deep/ChampMail-sub000/internal/kv"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/metrics"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// EventRecorder appends engagement events to durable storage
type EventRecorder interface {
	RecordEvent(ctx context.Context, event types.EngagementEvent) error
}

// SendTracker updates persisted send records
type SendTracker interface {
	MarkFirstOpen(ctx context.Context, campaignID, prospectID string, at time.Time) error
	MarkFirstClick(ctx context.Context, campaignID, prospectID string, at time.Time) error
	FindSendByMessageID(ctx context.Context, messageID string) (*types.SendRecord, error)
	RecordBounce(ctx context.Context, sendID string, c types.BounceClassification, at time.Time) error
}

// ProspectUpdater changes a prospect's contactability status
type ProspectUpdater interface {
	SetProspectStatus(ctx context.Context, prospectID, status string) error
	SetProspectStatusByEmail(ctx context.Context, email, status string) error
}

// Deps are the collaborators of an Engine. Only Store is required.
type Deps struct {
	Store     kv.Store
	Keys      kv.Keys
	TTLs      kv.TTLs
	Events    EventRecorder
	Sends     SendTracker
	Prospects ProspectUpdater
	Metrics   *metrics.Metrics
	Logger    logging.Logger
	Now       func() time.Time
}

// Engine is the tracking and bounce engine
type Engine struct {
	signer    *Signer
	baseURL   string
	store     kv.Store
	keys      kv.Keys
	ttls      kv.TTLs
	events    EventRecorder
	sends     SendTracker
	prospects ProspectUpdater
	metrics   *metrics.Metrics
	logger    logging.Logger
	now       func() time.Time
}

// NewEngine creates an engine signing with secret and building URLs under baseURL
func NewEngine(secret, baseURL string, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("tracking store is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("tracking secret is required")
	}
	if deps.TTLs == (kv.TTLs{}) {
		deps.TTLs = kv.DefaultTTLs()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{
		signer:    NewSigner(secret),
		baseURL:   strings.TrimRight(baseURL, "/"),
		store:     deps.Store,
		keys:      deps.Keys,
		ttls:      deps.TTLs,
		events:    deps.Events,
		sends:     deps.Sends,
		prospects: deps.Prospects,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
	}, nil
}

// Verify reports whether signature matches trackingID
func (e *Engine) Verify(trackingID, signature string) bool {
	return e.signer.Verify(trackingID, signature)
}

// GenerateTrackingURLs issues a tracking ID for one (campaign, prospect) pair and stores its mapping
func (e *Engine) GenerateTrackingURLs(ctx context.Context, campaignID, prospectID string) (*types.TrackingURLs, error) {
	if campaignID == "" || prospectID == "" {
		return nil, fmt.Errorf("campaign id and prospect id are required")
	}
	trackingID, err := NewTrackingID(campaignID, prospectID)
	if err != nil {
		return nil, err
	}
	mapping := types.TrackingMapping{
		CampaignID: campaignID,
		ProspectID: prospectID,
		CreatedAt:  e.now().UTC(),
	}
	if err := kv.SetJSON(ctx, e.store, e.keys.Tracking(trackingID), mapping, e.ttls.Tracking); err != nil {
		return nil, fmt.Errorf("failed to store tracking mapping: %w", err)
	}

	sig := e.signer.Sign(trackingID)
	return &types.TrackingURLs{
		TrackingID:     trackingID,
		Signature:      sig,
		PixelURL:       e.signedURL("open", trackingID),
		ClickBaseURL:   e.signedURL("click", trackingID),
		UnsubscribeURL: e.signedURL("unsubscribe", trackingID),
	}, nil
}

// UnsubscribeURL rebuilds the signed unsubscribe link of an issued tracking ID
func (e *Engine) UnsubscribeURL(trackingID string) string {
	return e.signedURL("unsubscribe", trackingID)
}

func (e *Engine) signedURL(kind, trackingID string) string {
	return e.baseURL + "/track/" + kind + "/" + url.PathEscape(trackingID) + "?sig=" + e.signer.Sign(trackingID)
}

// Resolve verifies the signature and loads the mapping for trackingID
func (e *Engine) Resolve(ctx context.Context, trackingID, signature string) (*types.TrackingMapping, error) {
	if !e.signer.Verify(trackingID, signature) {
		return nil, ErrInvalidSignature
	}
	var mapping types.TrackingMapping
	ok, err := kv.GetJSON(ctx, e.store, e.keys.Tracking(trackingID), &mapping)
	if err != nil {
		return nil, &RecordError{Op: "resolve", TrackingID: trackingID, Cause: err}
	}
	if !ok {
		return nil, ErrUnknownTrackingID
	}
	return &mapping, nil
}

// RecordOpen counts an open. Every valid call increments the raw open counter and
// appends an event; only the first call within the dedup window is a first open.
func (e *Engine) RecordOpen(ctx context.Context, trackingID, signature string) (*types.EngagementEvent, error) {
	mapping, err := e.resolveForEvent(ctx, types.EventOpen, trackingID, signature)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.Incr(ctx, e.keys.TrackingStat(mapping.CampaignID, types.StatOpens)); err != nil {
		return nil, &RecordError{Op: "record open", TrackingID: trackingID, Cause: err}
	}
	first, err := e.store.SetNX(ctx, e.keys.OpenDedup(trackingID), "1", e.ttls.OpenDedup)
	if err != nil {
		return nil, &RecordError{Op: "record open", TrackingID: trackingID, Cause: err}
	}

	now := e.now().UTC()
	if first {
		if _, err := e.store.Incr(ctx, e.keys.TrackingStat(mapping.CampaignID, types.StatUniqueOpens)); err != nil {
			return nil, &RecordError{Op: "record open", TrackingID: trackingID, Cause: err}
		}
		if e.sends != nil {
			if err := e.sends.MarkFirstOpen(ctx, mapping.CampaignID, mapping.ProspectID, now); err != nil {
				e.eventLogger(trackingID, mapping).WithError(err).Warn("Failed to mark first open on send record")
			}
		}
	}

	event := types.EngagementEvent{
		Type:       types.EventOpen,
		TrackingID: trackingID,
		CampaignID: mapping.CampaignID,
		ProspectID: mapping.ProspectID,
		Timestamp:  now,
		IsFirst:    first,
	}
	e.appendEvent(ctx, event)
	return &event, nil
}

// RecordClick counts a click on url. First clicks are tracked once per campaign and prospect.
func (e *Engine) RecordClick(ctx context.Context, trackingID, signature, destination string) (*types.EngagementEvent, error) {
	mapping, err := e.resolveForEvent(ctx, types.EventClick, trackingID, signature)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.Incr(ctx, e.keys.TrackingStat(mapping.CampaignID, types.StatClicks)); err != nil {
		return nil, &RecordError{Op: "record click", TrackingID: trackingID, Cause: err}
	}
	first, err := e.store.SetNX(ctx, e.keys.ClickDedup(mapping.CampaignID, mapping.ProspectID), "1", e.ttls.ClickDedup)
	if err != nil {
		return nil, &RecordError{Op: "record click", TrackingID: trackingID, Cause: err}
	}

	now := e.now().UTC()
	if first {
		if _, err := e.store.Incr(ctx, e.keys.TrackingStat(mapping.CampaignID, types.StatUniqueClicks)); err != nil {
			return nil, &RecordError{Op: "record click", TrackingID: trackingID, Cause: err}
		}
		if e.sends != nil {
			if err := e.sends.MarkFirstClick(ctx, mapping.CampaignID, mapping.ProspectID, now); err != nil {
				e.eventLogger(trackingID, mapping).WithError(err).Warn("Failed to mark first click on send record")
			}
		}
	}

	event := types.EngagementEvent{
		Type:       types.EventClick,
		TrackingID: trackingID,
		CampaignID: mapping.CampaignID,
		ProspectID: mapping.ProspectID,
		URL:        destination,
		Timestamp:  now,
		IsFirst:    first,
	}
	e.appendEvent(ctx, event)
	return &event, nil
}

// Unsubscribe marks the prospect behind trackingID as unsubscribed
func (e *Engine) Unsubscribe(ctx context.Context, trackingID, signature string) (*types.TrackingMapping, error) {
	mapping, err := e.Resolve(ctx, trackingID, signature)
	if err != nil {
		return nil, err
	}
	if e.prospects != nil {
		if err := e.prospects.SetProspectStatus(ctx, mapping.ProspectID, types.ProspectStatusUnsubscribed); err != nil {
			return nil, fmt.Errorf("failed to unsubscribe prospect %s: %w", mapping.ProspectID, err)
		}
	}
	if _, err := e.store.Incr(ctx, e.keys.TrackingStat(mapping.CampaignID, types.StatUnsubscribes)); err != nil {
		e.eventLogger(trackingID, mapping).WithError(err).Warn("Failed to increment unsubscribe counter")
	}
	e.eventLogger(trackingID, mapping).Info("Prospect unsubscribed")
	return mapping, nil
}

// Stats returns every engagement counter for a campaign
func (e *Engine) Stats(ctx context.Context, campaignID string) (map[string]int64, error) {
	stats := make(map[string]int64, len(types.AllStats))
	for _, stat := range types.AllStats {
		n, err := kv.GetInt(ctx, e.store, e.keys.TrackingStat(campaignID, stat))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", stat, err)
		}
		stats[stat] = n
	}
	return stats, nil
}

func (e *Engine) resolveForEvent(ctx context.Context, eventType, trackingID, signature string) (*types.TrackingMapping, error) {
	mapping, err := e.Resolve(ctx, trackingID, signature)
	switch {
	case errors.Is(err, ErrInvalidSignature):
		e.metrics.TrackingRejected(eventType, "signature")
		e.logger.WithFields(logging.Fields{"tracking_id": trackingID, "event": eventType}).Warn("Rejected tracking event with invalid signature")
		return nil, err
	case errors.Is(err, ErrUnknownTrackingID):
		e.metrics.TrackingRejected(eventType, "unknown")
		e.logger.WithFields(logging.Fields{"tracking_id": trackingID, "event": eventType}).Info("Ignoring tracking event for unknown tracking id")
		return nil, err
	case err != nil:
		return nil, err
	}
	return mapping, nil
}

func (e *Engine) appendEvent(ctx context.Context, event types.EngagementEvent) {
	e.metrics.TrackingEvent(event.Type, event.IsFirst)
	if e.events == nil {
		return
	}
	if err := e.events.RecordEvent(ctx, event); err != nil {
		e.logger.WithFields(logging.Fields{
			"tracking_id": event.TrackingID,
			"event":       event.Type,
		}).WithError(err).Warn("Failed to persist engagement event")
	}
}

func (e *Engine) eventLogger(trackingID string, mapping *types.TrackingMapping) logging.Logger {
	return e.logger.WithFields(logging.Fields{
		"tracking_id": trackingID,
		"campaign_id": mapping.CampaignID,
		"prospect_id": mapping.ProspectID,
	})
}
