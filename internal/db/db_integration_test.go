package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

type fixture struct {
	campaignID string
	listID     string
	prospects  []types.Prospect
}

func seed(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.New().String()[:8]
	f := fixture{campaignID: "camp-" + suffix, listID: "list-" + suffix}

	require.NoError(t, db.UpsertCampaign(ctx, &Campaign{
		ID:             f.campaignID,
		Name:           "Launch",
		ProspectListID: f.listID,
		UTM:            &types.UTMParams{Source: "email", Campaign: "launch"},
	}))
	for i, name := range []string{"Ada", "Grace"} {
		p := types.Prospect{
			ID:        "p-" + suffix + "-" + string(rune('a'+i)),
			Email:     name + "-" + suffix + "@example.com",
			FirstName: name,
			Company:   "Acme",
		}
		require.NoError(t, db.UpsertProspect(ctx, f.listID, p))
		f.prospects = append(f.prospects, p)
	}
	return f
}

func TestCampaignLifecycle_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	c, err := db.GetCampaign(ctx, f.campaignID)
	require.NoError(t, err)
	assert.Equal(t, types.CampaignStatusDraft, c.Status)
	require.NotNil(t, c.UTM)
	assert.Equal(t, "launch", c.UTM.Campaign)

	require.NoError(t, db.SetCampaignStatus(ctx, f.campaignID, types.CampaignStatusScheduled))
	c, err = db.GetCampaign(ctx, f.campaignID)
	require.NoError(t, err)
	assert.Equal(t, types.CampaignStatusScheduled, c.Status)

	_, err = db.GetCampaign(ctx, "missing-"+f.campaignID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.SetCampaignStatus(ctx, "missing-"+f.campaignID, "draft"), ErrNotFound)
}

func TestProspects_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	prospects, err := db.LoadProspects(ctx, f.listID)
	require.NoError(t, err)
	require.Len(t, prospects, 2)
	assert.Equal(t, types.ProspectStatusActive, prospects[0].Status)

	require.NoError(t, db.SetProspectStatusByEmail(ctx, f.prospects[1].Email, types.ProspectStatusBounced))
	require.NoError(t, db.SetProspectStatus(ctx, f.prospects[0].ID, types.ProspectStatusUnsubscribed))

	prospects, err = db.LoadProspects(ctx, f.listID)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, p := range prospects {
		statuses[p.ID] = p.Status
	}
	assert.Equal(t, types.ProspectStatusUnsubscribed, statuses[f.prospects[0].ID])
	assert.Equal(t, types.ProspectStatusBounced, statuses[f.prospects[1].ID])

	assert.ErrorIs(t, db.SetProspectStatusByEmail(ctx, "nobody@example.invalid", "bounced"), ErrNotFound)
}

func TestSendLifecycle_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, db)
	p := f.prospects[0]
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, db.SaveGeneratedEmail(ctx, f.campaignID, "trk-1", types.RenderedEmail{
		ProspectID: p.ID, Subject: "Hi Ada", HTML: "<p>Hi Ada</p>",
	}))
	require.NoError(t, db.SaveLinkMetadata(ctx, f.campaignID, p.ID, []types.LinkMetadata{
		{OriginalURL: "https://acme.example", RewrittenURL: "https://acme.example?utm_source=email", Position: 1},
	}))
	require.NoError(t, db.SaveScheduledSends(ctx, []types.ScheduleEntry{{
		CampaignID: f.campaignID, ProspectID: p.ID, ProspectEmail: p.Email, TrackingID: "trk-1",
		Subject: "Hi Ada", SendAt: now.Add(-time.Minute),
	}}))

	due, err := db.DueSends(ctx, now, 100)
	require.NoError(t, err)
	var send *types.DueSend
	for i := range due {
		if due[i].CampaignID == f.campaignID {
			send = &due[i]
		}
	}
	require.NotNil(t, send)
	assert.Equal(t, "<p>Hi Ada</p>", send.HTML)
	assert.Equal(t, "trk-1", send.TrackingID)

	messageID := "<" + uuid.New().String() + "@example.com>"
	require.NoError(t, db.MarkSendSent(ctx, send.ID, messageID, now))
	require.NoError(t, db.MarkFirstOpen(ctx, f.campaignID, p.ID, now))
	require.NoError(t, db.MarkFirstClick(ctx, f.campaignID, p.ID, now))

	rec, err := db.FindSendByMessageID(ctx, messageID)
	require.NoError(t, err)
	assert.Equal(t, send.ID, rec.ID)
	assert.Equal(t, p.ID, rec.ProspectID)

	require.NoError(t, db.RecordBounce(ctx, rec.ID, types.BounceClassification{BounceType: types.BounceHard, Category: types.CategoryInvalidRecipient}, now))

	_, err = db.FindSendByMessageID(ctx, "<unknown@example.com>")
	assert.ErrorIs(t, err, ErrNotFound)

	due, err = db.DueSends(ctx, now, 100)
	require.NoError(t, err)
	for _, d := range due {
		assert.NotEqual(t, send.ID, d.ID)
	}
}

func TestEvents_Integration(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	for _, e := range []types.EngagementEvent{
		{Type: types.EventOpen, TrackingID: "t", CampaignID: f.campaignID, ProspectID: "p", Timestamp: time.Now(), IsFirst: true},
		{Type: types.EventOpen, TrackingID: "t", CampaignID: f.campaignID, ProspectID: "p", Timestamp: time.Now()},
		{Type: types.EventClick, TrackingID: "t", CampaignID: f.campaignID, ProspectID: "p", URL: "https://acme.example", Timestamp: time.Now()},
	} {
		require.NoError(t, db.RecordEvent(ctx, e))
	}

	counts, err := db.EventCounts(ctx, f.campaignID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[types.EventOpen])
	assert.Equal(t, int64(1), counts[types.EventClick])
}
