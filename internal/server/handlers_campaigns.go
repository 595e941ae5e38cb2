package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Champ-Deep/ChampMail-sub000/internal/db"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// GenerateRequest is the body of POST /campaigns/{campaign_id}/generate
type GenerateRequest struct {
	ProspectListID string `json:"prospect_list_id,omitempty"`
	Description    string `json:"description" validate:"required"`
	TargetAudience string `json:"target_audience,omitempty"`
	Style          string `json:"style,omitempty"`
	Goals          string `json:"goals,omitempty"`

	// UTM overrides the campaign's stored parameters field by field
	UTM           *types.UTMParams     `json:"utm,omitempty"`
	PreserveUTM   bool                 `json:"preserve_utm,omitempty"`
	LinkOverrides []types.LinkOverride `json:"link_overrides,omitempty"`
}

// GenerateResponse is returned when a run was accepted
type GenerateResponse struct {
	CampaignID string `json:"campaign_id"`
	Status     string `json:"status"`
	StatusURL  string `json:"status_url"`
}

// StatsResponse carries a campaign's engagement counters
type StatsResponse struct {
	CampaignID string           `json:"campaign_id"`
	Stats      map[string]int64 `json:"stats"`
}

// handleGenerate starts a pipeline run in the background
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validateBody(body); err != nil {
		s.writeError(w, err)
		return
	}

	req, err := s.buildRunRequest(r.Context(), campaignID, body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	run, ok, err := s.pipeline.Status(r.Context(), campaignID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ok && !run.IsTerminal() {
		s.writeError(w, pipeline.ErrRunInProgress)
		return
	}

	s.tasks.Go(r.Context(), "pipeline:"+campaignID, func(ctx context.Context) error {
		_, err := s.pipeline.Run(ctx, req)
		return err
	})

	s.logger.WithFields(logging.Fields{
		"campaign_id":      campaignID,
		"prospect_list_id": req.ProspectListID,
	}).Info("Campaign generation accepted")

	s.jsonResponse(w, http.StatusAccepted, GenerateResponse{
		CampaignID: campaignID,
		Status:     "accepted",
		StatusURL:  "/campaigns/" + campaignID + "/pipeline",
	})
}

// buildRunRequest fills the run from the request body and the stored campaign
func (s *Server) buildRunRequest(ctx context.Context, campaignID string, body GenerateRequest) (pipeline.RunRequest, error) {
	req := pipeline.RunRequest{
		CampaignID:     campaignID,
		ProspectListID: body.ProspectListID,
		Description:    body.Description,
		TargetAudience: body.TargetAudience,
		Style:          body.Style,
		Goals:          body.Goals,
		PreserveUTM:    body.PreserveUTM,
		LinkOverrides:  body.LinkOverrides,
	}

	var utm types.UTMParams
	if s.campaigns != nil {
		campaign, err := s.campaigns.GetCampaign(ctx, campaignID)
		if errors.Is(err, db.ErrNotFound) {
			return req, &ErrCampaignNotFound{CampaignID: campaignID}
		}
		if err != nil {
			return req, err
		}
		if req.ProspectListID == "" {
			req.ProspectListID = campaign.ProspectListID
		}
		if campaign.UTM != nil {
			utm = *campaign.UTM
		}
	}
	if body.UTM != nil {
		utm = utm.Merge(*body.UTM)
	}
	if !utm.IsZero() {
		req.UTM = &utm
	}

	if req.ProspectListID == "" {
		return req, &ErrValidation{Field: "prospect_list_id", Message: "is required"}
	}
	return req, nil
}

// handlePipelineStatus returns the campaign's latest run
func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")
	run, ok, err := s.pipeline.Status(r.Context(), campaignID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, &ErrNoRun{CampaignID: campaignID, What: "pipeline run"})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleSchedule returns the published schedule summary
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")
	summary, ok, err := s.schedules.GetSchedule(r.Context(), campaignID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, &ErrNoRun{CampaignID: campaignID, What: "schedule"})
		return
	}
	s.jsonResponse(w, http.StatusOK, summary)
}

// handleStats returns the engagement counters; unseen counters read as zero
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaign_id")
	stats, err := s.tracker.Stats(r.Context(), campaignID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, StatsResponse{CampaignID: campaignID, Stats: stats})
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateBody runs struct tag validation and reports the first failing field
func (s *Server) validateBody(body any) error {
	err := s.validate.Struct(body)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ErrValidation{Field: fe.Field(), Message: "failed '" + fe.Tag() + "' check"}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}
