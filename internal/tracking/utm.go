package tracking

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// InjectUTMIntoHTML adds UTM parameters to every trackable anchor.
// With preserveExisting, links that already carry any utm_ parameter are left alone
// and existing values are never overwritten. Overrides whose Match is a substring of
// the link are merged on top of params in order.
func InjectUTMIntoHTML(body string, params types.UTMParams, preserveExisting bool, overrides []types.LinkOverride) (string, []types.LinkMetadata) {
	var links []types.LinkMetadata
	position := 0

	out := rewriteAnchors(body, func(original string) (string, bool) {
		if !isTrackable(original) {
			return "", false
		}
		position++

		u, err := url.Parse(original)
		if err != nil || (u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https") {
			return "", false
		}
		query := u.Query()
		if preserveExisting && hasUTM(query) {
			return "", false
		}

		resolved := params
		for _, o := range overrides {
			if o.Match != "" && strings.Contains(original, o.Match) {
				resolved = resolved.Merge(o.Params)
			}
		}
		if resolved.IsZero() {
			return "", false
		}

		setUTM(query, resolved, preserveExisting)
		u.RawQuery = query.Encode()
		rewritten := u.String()

		links = append(links, types.LinkMetadata{
			OriginalURL:  original,
			RewrittenURL: rewritten,
			Position:     position,
			UTM:          resolved,
		})
		return rewritten, true
	}, func(inner string) {
		links[len(links)-1].AnchorText = anchorText(inner)
	})
	return out, links
}

func hasUTM(query url.Values) bool {
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			return true
		}
	}
	return false
}

func setUTM(query url.Values, p types.UTMParams, keepExisting bool) {
	set := func(key, value string) {
		if value == "" {
			return
		}
		if keepExisting && query.Get(key) != "" {
			return
		}
		query.Set(key, value)
	}
	set("utm_source", p.Source)
	set("utm_medium", p.Medium)
	set("utm_campaign", p.Campaign)
	set("utm_term", p.Term)
	set("utm_content", p.Content)
}

// anchorText returns the visible text of an anchor's inner HTML with whitespace collapsed
func anchorText(inner string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(inner))
	if err != nil {
		return strings.TrimSpace(inner)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
