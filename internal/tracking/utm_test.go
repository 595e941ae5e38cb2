package tracking

import (
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

func TestInjectUTMIntoHTML(t *testing.T) {
	in := `<p><a href="https://acme.com/pricing"><b>See</b>  pricing</a> <a href="mailto:x@acme.com">mail</a> <a href="https://acme.com/blog?x=1">Blog</a></p>`
	params := types.UTMParams{Source: "email", Medium: "outreach", Campaign: "launch"}

	out, links := InjectUTMIntoHTML(in, params, true, nil)

	require.Len(t, links, 2)
	assert.Equal(t, "https://acme.com/pricing", links[0].OriginalURL)
	assert.Equal(t, "https://acme.com/pricing?utm_campaign=launch&utm_medium=outreach&utm_source=email", links[0].RewrittenURL)
	assert.Equal(t, "See pricing", links[0].AnchorText)
	assert.Equal(t, 1, links[0].Position)
	assert.Equal(t, params, links[0].UTM)

	assert.Equal(t, 2, links[1].Position)
	assert.Contains(t, links[1].RewrittenURL, "x=1")
	assert.Equal(t, "Blog", links[1].AnchorText)

	assert.Contains(t, out, `href="https://acme.com/pricing?utm_campaign=launch&amp;utm_medium=outreach&amp;utm_source=email"`)
	assert.Contains(t, out, `<a href="mailto:x@acme.com">mail</a>`)
	assert.Contains(t, out, "<b>See</b>")
}

func TestInjectUTMIntoHTML_PreserveExisting(t *testing.T) {
	in := `<a href="https://acme.com/?utm_source=newsletter">A</a>`
	params := types.UTMParams{Source: "email"}

	out, links := InjectUTMIntoHTML(in, params, true, nil)
	assert.Equal(t, in, out)
	assert.Empty(t, links)

	out, links = InjectUTMIntoHTML(in, params, false, nil)
	require.Len(t, links, 1)
	assert.Contains(t, out, "utm_source=email")
	assert.NotContains(t, out, "newsletter")
}

func TestInjectUTMIntoHTML_Overrides(t *testing.T) {
	in := `<a href="https://acme.com/pricing">P</a><a href="https://docs.acme.com">D</a>`
	params := types.UTMParams{Source: "email", Content: "body"}
	overrides := []types.LinkOverride{
		{Match: "docs.acme.com", Params: types.UTMParams{Content: "docs-link"}},
	}

	_, links := InjectUTMIntoHTML(in, params, true, overrides)

	require.Len(t, links, 2)
	assert.Equal(t, "body", links[0].UTM.Content)
	assert.Equal(t, "docs-link", links[1].UTM.Content)
	assert.Equal(t, "email", links[1].UTM.Source)
}

func TestInjectUTMIntoHTML_NoParams(t *testing.T) {
	in := `<a href="https://acme.com">A</a>`
	out, links := InjectUTMIntoHTML(in, types.UTMParams{}, true, nil)
	assert.Equal(t, in, out)
	assert.Empty(t, links)
}

func TestInjectUTMThenWrap(t *testing.T) {
	in := `<a href="https://acme.com">A</a>`
	tagged, _ := InjectUTMIntoHTML(in, types.UTMParams{Source: "email", Medium: "cold"}, true, nil)
	out := WrapLinksInHTML(tagged, clickBase, "abcd")

	assert.True(t, strings.HasPrefix(out, `<a href="`+html.EscapeString(clickBase)+"&amp;url="))
	assert.Contains(t, out, "utm_medium%3Dcold%26utm_source%3Demail")
}

func TestInjectUTMIntoHTML_IrregularAnchors(t *testing.T) {
	params := types.UTMParams{Source: "email"}

	tests := []struct {
		name     string
		in       string
		wantURLs []string
		wantText []string
	}{
		{
			name:     "unquoted href",
			in:       `<a href=https://acme.com/a>A</a>`,
			wantURLs: []string{"https://acme.com/a"},
			wantText: []string{"A"},
		},
		{
			name:     "greater-than inside an attribute",
			in:       `<a title="x > y" href="https://acme.com/b">B</a>`,
			wantURLs: []string{"https://acme.com/b"},
			wantText: []string{"B"},
		},
		{
			name:     "unclosed anchor does not swallow its neighbour",
			in:       `<a href="https://acme.com/d">one <a href="https://acme.com/e">two</a>`,
			wantURLs: []string{"https://acme.com/d", "https://acme.com/e"},
			wantText: []string{"one", "two"},
		},
		{
			name:     "anchor left open at end of document",
			in:       `<p><a href="https://acme.com/f">tail`,
			wantURLs: []string{"https://acme.com/f"},
			wantText: []string{"tail"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, links := InjectUTMIntoHTML(tt.in, params, true, nil)
			require.Len(t, links, len(tt.wantURLs))
			for i, want := range tt.wantURLs {
				assert.Equal(t, want, links[i].OriginalURL)
				assert.Equal(t, want+"?utm_source=email", links[i].RewrittenURL)
				assert.Equal(t, tt.wantText[i], links[i].AnchorText)
				assert.Equal(t, i+1, links[i].Position)
				assert.Contains(t, out, `href="`+want+`?utm_source=email"`)
			}
		})
	}
}
