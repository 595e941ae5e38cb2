package tracking

import (
	"context"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/bounce"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// BouncePayload is the body of a bounce webhook
type BouncePayload struct {
	Email             string `json:"email" validate:"required,email"`
	SMTPCode          string `json:"smtp_code,omitempty" validate:"omitempty,max=16"`
	SMTPResponse      string `json:"smtp_response,omitempty"`
	BounceType        string `json:"bounce_type,omitempty"`
	DiagnosticMessage string `json:"diagnostic_message,omitempty"`
	MessageID         string `json:"message_id,omitempty"`
}

// BounceResult reports the classification and every side effect that succeeded
type BounceResult struct {
	Classification types.BounceClassification `json:"classification"`
	Actions        []string                   `json:"actions"`
}

// Actions reported by ProcessBounceWebhook
const (
	ActionSendRecordUpdated = "send_record_updated"
	ActionCampaignCounted   = "campaign_bounce_counted"
	ActionProspectPrefix    = "prospect_marked_"
)

// ProcessBounceWebhook classifies a bounce and applies each side effect independently.
// A failed or skipped action never prevents the others.
func (e *Engine) ProcessBounceWebhook(ctx context.Context, payload BouncePayload) BounceResult {
	classification := bounce.Classify(bounce.Report{
		SMTPCode:   payload.SMTPCode,
		Response:   payload.SMTPResponse,
		Diagnostic: payload.DiagnosticMessage,
		Hint:       payload.BounceType,
	})
	e.metrics.Bounce(classification.BounceType, classification.Category)

	log := e.logger.WithFields(logging.Fields{
		"email":       payload.Email,
		"message_id":  payload.MessageID,
		"bounce_type": classification.BounceType,
		"category":    classification.Category,
	})

	result := BounceResult{Classification: classification, Actions: []string{}}

	send := e.findSend(ctx, payload.MessageID, log)
	if send != nil {
		if err := e.sends.RecordBounce(ctx, send.ID, classification, e.now().UTC()); err != nil {
			log.WithError(err).Warn("Failed to update send record with bounce")
		} else {
			result.Actions = append(result.Actions, ActionSendRecordUpdated)
		}

		if _, err := e.store.Incr(ctx, e.keys.TrackingStat(send.CampaignID, types.StatBounces)); err != nil {
			log.WithError(err).Warn("Failed to increment campaign bounce counter")
		} else {
			result.Actions = append(result.Actions, ActionCampaignCounted)
		}
	}

	if classification.ShouldSuppress {
		if status, ok := e.suppress(ctx, payload.Email, classification, log); ok {
			result.Actions = append(result.Actions, ActionProspectPrefix+status)
		}
	}

	log.WithField("actions", result.Actions).Info("Processed bounce")
	return result
}

func (e *Engine) findSend(ctx context.Context, messageID string, log logging.Logger) *types.SendRecord {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" || e.sends == nil {
		return nil
	}
	send, err := e.sends.FindSendByMessageID(ctx, messageID)
	if err != nil {
		log.WithError(err).Warn("Failed to look up send record")
		return nil
	}
	if send == nil {
		log.Info("No send record for bounced message")
	}
	return send
}

func (e *Engine) suppress(ctx context.Context, email string, c types.BounceClassification, log logging.Logger) (string, bool) {
	if e.prospects == nil || email == "" {
		return "", false
	}
	status := types.ProspectStatusBounced
	if c.Category == types.CategorySpamComplaint {
		status = types.ProspectStatusDoNotContact
	}
	if err := e.prospects.SetProspectStatusByEmail(ctx, email, status); err != nil {
		log.WithError(err).Warn("Failed to suppress prospect")
		return "", false
	}
	return status, true
}
