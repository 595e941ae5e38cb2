package tracking

import (
	"net/url"
	"strings"
)

var skippedSchemes = []string{"mailto:", "tel:", "javascript:", "sms:", "data:"}

// trackingPaths are our own endpoints; links to them are never wrapped again
var trackingPaths = []string{"/track/open", "/track/click", "/track/unsubscribe"}

// WrapLinksInHTML rewrites every trackable anchor into click_base_url&url=<escaped original>.
// Anchors that are not trackable pass through unchanged.
func WrapLinksInHTML(body, clickBaseURL, signature string) string {
	if clickBaseURL == "" {
		return body
	}
	base := clickBaseURL
	if signature != "" && !strings.Contains(base, "sig=") {
		base = withQuery(base, "sig="+url.QueryEscape(signature))
	}

	return rewriteAnchors(body, func(href string) (string, bool) {
		if !isTrackable(href) {
			return "", false
		}
		return withQuery(base, "url="+url.QueryEscape(href)), true
	}, nil)
}

// isTrackable reports whether a link should be rewritten
func isTrackable(link string) bool {
	if link == "" || strings.HasPrefix(link, "#") {
		return false
	}
	if strings.Contains(link, "{{") || strings.Contains(link, "}}") {
		return false
	}
	lower := strings.ToLower(link)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	for _, path := range trackingPaths {
		if strings.Contains(lower, path) {
			return false
		}
	}
	return true
}

func withQuery(base, param string) string {
	if strings.Contains(base, "?") {
		return base + "&" + param
	}
	return base + "?" + param
}
