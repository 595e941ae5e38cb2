package pipeline

import (
	"context"

	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/rendering"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// finalize issues tracking URLs for every rendered email, rewrites its links,
// saves it and schedules the campaign's sends
func (o *Orchestrator) finalize(ctx context.Context, st *runState) ([]types.ScheduleEntry, *StageError) {
	prospects := make(map[string]types.Prospect, len(st.prospects))
	for _, p := range st.prospects {
		prospects[p.ID] = p
	}

	requests := make([]types.SendRequest, 0, len(st.rendered))
	for i := range st.rendered {
		email := &st.rendered[i]
		urls, err := o.tracker.GenerateTrackingURLs(ctx, st.req.CampaignID, email.ProspectID)
		if err != nil {
			return nil, &StageError{Kind: KindTracking, Stage: stageScheduling, Err: err}
		}

		body := rendering.EnsureTrackingPlaceholders(email.HTML)
		body = rendering.SubstituteTracking(body, urls.PixelURL, urls.UnsubscribeURL)
		if st.req.UTM != nil {
			var links []types.LinkMetadata
			body, links = tracking.InjectUTMIntoHTML(body, *st.req.UTM, st.req.PreserveUTM, st.req.LinkOverrides)
			if len(links) > 0 {
				if err := o.campaigns.SaveLinkMetadata(ctx, st.req.CampaignID, email.ProspectID, links); err != nil {
					st.log.WithField("prospect_id", email.ProspectID).WithError(err).Warn("Failed to save link metadata")
				}
			}
		}
		email.HTML = tracking.WrapLinksInHTML(body, urls.ClickBaseURL, urls.Signature)

		if err := o.campaigns.SaveGeneratedEmail(ctx, st.req.CampaignID, urls.TrackingID, *email); err != nil {
			return nil, &StageError{Kind: KindPersistence, Stage: stageScheduling, Err: err}
		}

		requests = append(requests, types.SendRequest{
			Prospect:   prospects[email.ProspectID],
			Subject:    email.Subject,
			HTML:       email.HTML,
			TrackingID: urls.TrackingID,
			Timezone:   prospects[email.ProspectID].Timezone,
		})
	}

	entries, err := o.scheduler.ScheduleCampaignSends(ctx, st.req.CampaignID, requests)
	if err != nil {
		return nil, &StageError{Kind: KindScheduling, Stage: stageScheduling, Err: err}
	}
	if err := o.campaigns.SaveScheduledSends(ctx, entries); err != nil {
		return nil, &StageError{Kind: KindPersistence, Stage: stageScheduling, Err: err}
	}

	log := st.log.WithField("sends", len(entries))
	if len(entries) > 0 {
		log = log.WithFields(logging.Fields{
			"first_send": entries[0].SendAt,
			"last_send":  entries[len(entries)-1].SendAt,
		})
	}
	log.Info("Scheduled sends")
	return entries, nil
}
