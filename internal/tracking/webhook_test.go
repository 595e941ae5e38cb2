package tracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

func TestProcessBounceWebhook_HardBounce(t *testing.T) {
	h := newHarness(t)
	h.sends.records["<m1@example.com>"] = &types.SendRecord{ID: "s1", CampaignID: "c1", ProspectID: "p1", MessageID: "<m1@example.com>"}

	result := h.engine.ProcessBounceWebhook(context.Background(), BouncePayload{
		Email:        "jane@acme.com",
		SMTPCode:     "550",
		SMTPResponse: "user unknown",
		MessageID:    "<m1@example.com>",
	})

	assert.Equal(t, types.BounceHard, result.Classification.BounceType)
	assert.Equal(t, types.CategoryInvalidRecipient, result.Classification.Category)
	assert.True(t, result.Classification.ShouldSuppress)
	assert.Equal(t, []string{ActionSendRecordUpdated, ActionCampaignCounted, "prospect_marked_bounced"}, result.Actions)
	assert.Equal(t, types.ProspectStatusBounced, h.prospects.byEmail["jane@acme.com"])
	assert.Contains(t, h.sends.bounced, "s1")
	assert.Equal(t, int64(1), h.stat(t, "c1", types.StatBounces))
}

func TestProcessBounceWebhook_SoftBounceDoesNotSuppress(t *testing.T) {
	h := newHarness(t)

	result := h.engine.ProcessBounceWebhook(context.Background(), BouncePayload{
		Email:        "jane@acme.com",
		SMTPResponse: "mailbox temporarily over quota",
	})

	assert.Equal(t, types.BounceSoft, result.Classification.BounceType)
	assert.Equal(t, types.CategoryTemporaryFailure, result.Classification.Category)
	assert.False(t, result.Classification.ShouldSuppress)
	assert.Empty(t, result.Actions)
	assert.Empty(t, h.prospects.byEmail)
}

func TestProcessBounceWebhook_SpamComplaint(t *testing.T) {
	h := newHarness(t)

	result := h.engine.ProcessBounceWebhook(context.Background(), BouncePayload{
		Email:      "jane@acme.com",
		BounceType: "complaint",
	})

	assert.Equal(t, types.CategorySpamComplaint, result.Classification.Category)
	assert.Equal(t, []string{"prospect_marked_do_not_contact"}, result.Actions)
	assert.Equal(t, types.ProspectStatusDoNotContact, h.prospects.byEmail["jane@acme.com"])
}

func TestProcessBounceWebhook_LookupFailureStillSuppresses(t *testing.T) {
	h := newHarness(t)
	h.sends.lookupErr = errBoom

	result := h.engine.ProcessBounceWebhook(context.Background(), BouncePayload{
		Email:     "jane@acme.com",
		SMTPCode:  "550",
		MessageID: "<m1@example.com>",
	})

	assert.Equal(t, []string{"prospect_marked_bounced"}, result.Actions)
	assert.Equal(t, types.ProspectStatusBounced, h.prospects.byEmail["jane@acme.com"])
}

func TestProcessBounceWebhook_SuppressionFailureKeepsOtherActions(t *testing.T) {
	h := newHarness(t)
	h.prospects.err = errBoom
	h.sends.bounceErr = errBoom
	h.sends.records["m1"] = &types.SendRecord{ID: "s1", CampaignID: "c1", MessageID: "m1"}

	result := h.engine.ProcessBounceWebhook(context.Background(), BouncePayload{
		Email:     "jane@acme.com",
		SMTPCode:  "550",
		MessageID: "m1",
	})

	require.True(t, result.Classification.ShouldSuppress)
	assert.Equal(t, []string{ActionCampaignCounted}, result.Actions)
	assert.Equal(t, int64(1), h.stat(t, "c1", types.StatBounces))
}
