package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/tracking"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// transparentGIF is a 1x1 transparent GIF89a
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff,
	0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x44, 0x01, 0x00,
	0x3b,
}

// BounceResponse is the body returned by the bounce webhook
type BounceResponse struct {
	Status         string                     `json:"status"`
	Email          string                     `json:"email"`
	BounceType     string                     `json:"bounce_type"`
	Classification types.BounceClassification `json:"classification"`
	Actions        []string                   `json:"actions"`
}

// handleTrackOpen records an open and always serves the pixel
func (s *Server) handleTrackOpen(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")
	if _, err := s.tracker.RecordOpen(r.Context(), trackingID, r.URL.Query().Get("sig")); err != nil {
		s.logTrackingError(err, "open", trackingID)
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}

// handleTrackClick records a click and redirects to the destination even when recording fails.
// A destination that is not an absolute http(s) URL gets 400 rather than an open redirect.
func (s *Server) handleTrackClick(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")
	destination := r.URL.Query().Get("url")
	if !isRedirectable(destination) {
		s.errorResponse(w, http.StatusBadRequest, "missing or invalid destination url")
		return
	}

	if _, err := s.tracker.RecordClick(r.Context(), trackingID, r.URL.Query().Get("sig"), destination); err != nil {
		s.logTrackingError(err, "click", trackingID)
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
	http.Redirect(w, r, destination, http.StatusFound)
}

// isRedirectable accepts absolute http and https URLs only
func isRedirectable(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// logTrackingError keeps rejected events quiet; the engine already logged and counted them
func (s *Server) logTrackingError(err error, event, trackingID string) {
	if errors.Is(err, tracking.ErrInvalidSignature) || errors.Is(err, tracking.ErrUnknownTrackingID) {
		return
	}
	s.logger.WithFields(logging.Fields{"tracking_id": trackingID, "event": event}).
		WithError(err).Error("Failed to record tracking event")
}

var unsubscribeTemplate = template.Must(template.New("unsubscribe").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;background:#f6f7f9;color:#222;margin:0}
main{max-width:480px;margin:12vh auto;background:#fff;border-radius:8px;padding:32px;box-shadow:0 1px 4px rgba(0,0,0,.08)}
button{background:#222;color:#fff;border:0;border-radius:4px;padding:10px 18px;font-size:15px;cursor:pointer}
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Action}}<form method="post" action="{{.Action}}"><button type="submit">Unsubscribe</button></form>{{end}}
</main>
</body>
</html>
`))

type unsubscribePage struct {
	Title   string
	Message string
	Action  string
}

// handleUnsubscribePage shows the confirmation form
func (s *Server) handleUnsubscribePage(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")
	sig := r.URL.Query().Get("sig")

	if _, err := s.tracker.Resolve(r.Context(), trackingID, sig); err != nil {
		s.unsubscribeError(w, err, trackingID)
		return
	}

	action := "/track/unsubscribe/" + url.PathEscape(trackingID) + "?" + url.Values{"sig": {sig}}.Encode()
	s.renderUnsubscribe(w, http.StatusOK, unsubscribePage{
		Title:   "Unsubscribe",
		Message: "Click below to stop receiving emails from this sender.",
		Action:  action,
	})
}

// handleUnsubscribe processes the confirmation. One-click POSTs from mail clients land here too.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	trackingID := r.PathValue("tracking_id")

	if _, err := s.tracker.Unsubscribe(r.Context(), trackingID, r.URL.Query().Get("sig")); err != nil {
		s.unsubscribeError(w, err, trackingID)
		return
	}

	s.renderUnsubscribe(w, http.StatusOK, unsubscribePage{
		Title:   "You have been unsubscribed",
		Message: "You will not receive any further emails from this sender.",
	})
}

func (s *Server) unsubscribeError(w http.ResponseWriter, err error, trackingID string) {
	if HTTPStatus(err) == http.StatusBadRequest {
		s.renderUnsubscribe(w, http.StatusBadRequest, unsubscribePage{
			Title:   "Invalid link",
			Message: "This unsubscribe link is invalid or has expired.",
		})
		return
	}
	s.logger.WithField("tracking_id", trackingID).WithError(err).Error("Failed to process unsubscribe")
	s.renderUnsubscribe(w, http.StatusInternalServerError, unsubscribePage{
		Title:   "Something went wrong",
		Message: "We could not process your request. Please try again later.",
	})
}

func (s *Server) renderUnsubscribe(w http.ResponseWriter, status int, page unsubscribePage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := unsubscribeTemplate.Execute(w, page); err != nil {
		s.logger.WithError(err).Warn("Error rendering unsubscribe page")
	}
}

// handleBounce classifies a bounce report and applies its side effects
func (s *Server) handleBounce(w http.ResponseWriter, r *http.Request) {
	var payload tracking.BouncePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validateBody(payload); err != nil {
		s.writeError(w, err)
		return
	}

	result := s.tracker.ProcessBounceWebhook(r.Context(), payload)
	s.jsonResponse(w, http.StatusOK, BounceResponse{
		Status:         "processed",
		Email:          payload.Email,
		BounceType:     result.Classification.BounceType,
		Classification: result.Classification,
		Actions:        result.Actions,
	})
}
