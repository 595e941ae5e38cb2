package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Champ-Deep/ChampMail-sub000/internal/db"
	"github.com/Champ-Deep/ChampMail-sub000/internal/pipeline"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrCampaignNotFound indicates the campaign has no record
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign not found: %s", e.CampaignID)
}

// ErrNoRun indicates the campaign has never been generated, or its run expired
type ErrNoRun struct {
	CampaignID string
	What       string
}

func (e *ErrNoRun) Error() string {
	return fmt.Sprintf("no %s for campaign %s", e.What, e.CampaignID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var campaignErr *ErrCampaignNotFound
	var noRunErr *ErrNoRun
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &campaignErr), errors.As(err, &noRunErr), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, tracking.ErrInvalidSignature), errors.Is(err, tracking.ErrUnknownTrackingID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
