package rendering

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

func TestFallbackHTML(t *testing.T) {
	email := types.PersonalizedEmail{
		Subject: "Hello <Acme>",
		Body:    "Hi Jane,\n\nWe ship <fast> & safe.",
	}

	out, err := FallbackHTML(email)
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Hello &lt;Acme&gt;</title>")
	assert.Contains(t, out, "We ship &lt;fast&gt; &amp; safe.")
	assert.Contains(t, out, TrackingURLPlaceholder)
	assert.Contains(t, out, UnsubscribeURLPlaceholder)
	assert.Contains(t, out, `<table role="presentation"`)
}

func TestFallbackHTML_Deterministic(t *testing.T) {
	email := types.PersonalizedEmail{Subject: "s", Body: "b"}
	a, err := FallbackHTML(email)
	require.NoError(t, err)
	b, err := FallbackHTML(email)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEnsureTrackingPlaceholders(t *testing.T) {
	out := EnsureTrackingPlaceholders("<html><body><p>Hi</p></body></html>")
	assert.Contains(t, out, UnsubscribeURLPlaceholder)
	assert.Contains(t, out, TrackingURLPlaceholder)
	assert.True(t, strings.HasSuffix(out, "</body></html>"))

	bare := EnsureTrackingPlaceholders("<p>Hi</p>")
	assert.True(t, strings.HasPrefix(bare, "<p>Hi</p>\n"))

	complete := "<p>{{tracking_url}} {{unsubscribe_url}}</p>"
	assert.Equal(t, complete, EnsureTrackingPlaceholders(complete))
}

func TestSubstituteTracking(t *testing.T) {
	out := SubstituteTracking(
		`<img src="{{tracking_url}}"><a href="{{unsubscribe_url}}">u</a>`,
		"https://t.example.com/track/open/abc?sig=1",
		"https://t.example.com/track/unsubscribe/abc?sig=1",
	)
	assert.Equal(t, `<img src="https://t.example.com/track/open/abc?sig=1"><a href="https://t.example.com/track/unsubscribe/abc?sig=1">u</a>`, out)
}
