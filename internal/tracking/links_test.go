package tracking

import (
	"html"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

const clickBase = "https://t.example.com/track/click/tid?sig=abcd"

func TestWrapLinksInHTML(t *testing.T) {
	wrapped := func(orig string) string {
		return html.EscapeString(clickBase + "&url=" + url.QueryEscape(orig))
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain link",
			in:   `<a href="https://acme.com/pricing">Pricing</a>`,
			want: `<a href="` + wrapped("https://acme.com/pricing") + `">Pricing</a>`,
		},
		{
			name: "single quotes and attributes",
			in:   `<a class="btn" href='https://acme.com/?a=1&amp;b=2' target="_blank">Go</a>`,
			want: `<a class="btn" href="` + wrapped("https://acme.com/?a=1&b=2") + `" target="_blank">Go</a>`,
		},
		{
			name: "mailto untouched",
			in:   `<a href="mailto:jane@acme.com">Mail</a>`,
			want: `<a href="mailto:jane@acme.com">Mail</a>`,
		},
		{
			name: "tel untouched",
			in:   `<a href="tel:+15551234">Call</a>`,
			want: `<a href="tel:+15551234">Call</a>`,
		},
		{
			name: "javascript untouched",
			in:   `<a href="javascript:void(0)">x</a>`,
			want: `<a href="javascript:void(0)">x</a>`,
		},
		{
			name: "unsubscribe endpoint untouched",
			in:   `<a href="https://t.example.com/track/unsubscribe/tid?sig=abcd">Unsubscribe</a>`,
			want: `<a href="https://t.example.com/track/unsubscribe/tid?sig=abcd">Unsubscribe</a>`,
		},
		{
			name: "placeholder untouched",
			in:   `<a href="{{unsubscribe_url}}">Unsubscribe</a>`,
			want: `<a href="{{unsubscribe_url}}">Unsubscribe</a>`,
		},
		{
			name: "fragment untouched",
			in:   `<a href="#top">Top</a>`,
			want: `<a href="#top">Top</a>`,
		},
		{
			name: "unquoted href",
			in:   `<a href=https://example.com/b>B</a>`,
			want: `<a href="` + wrapped("https://example.com/b") + `">B</a>`,
		},
		{
			name: "greater-than inside an earlier attribute",
			in:   `<a title="1 > 0" href="https://example.com/a">A</a>`,
			want: `<a title="1 &gt; 0" href="` + wrapped("https://example.com/a") + `">A</a>`,
		},
		{
			name: "greater-than inside a single-quoted attribute",
			in:   `<a data-x='a>b' href="https://example.com/c">C</a>`,
			want: `<a data-x="a&gt;b" href="` + wrapped("https://example.com/c") + `">C</a>`,
		},
		{
			name: "unclosed anchor before another",
			in:   `<a href="https://example.com/d">one <a href="https://example.com/e">two</a>`,
			want: `<a href="` + wrapped("https://example.com/d") + `">one <a href="` + wrapped("https://example.com/e") + `">two</a>`,
		},
		{
			name: "markup around anchors kept byte for byte",
			in:   "<!DOCTYPE html>\n<P CLASS=x>Hi {{first_name}},<br/><img src='{{pixel_url}}'></P>",
			want: "<!DOCTYPE html>\n<P CLASS=x>Hi {{first_name}},<br/><img src='{{pixel_url}}'></P>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapLinksInHTML(tt.in, clickBase, "abcd"))
		})
	}
}

func TestWrapLinksInHTML_MultipleLinks(t *testing.T) {
	in := `<p><a href="https://a.com">A</a> and <A HREF="https://b.com">B</A></p>`
	out := WrapLinksInHTML(in, clickBase, "abcd")

	assert.Contains(t, out, url.QueryEscape("https://a.com"))
	assert.Contains(t, out, url.QueryEscape("https://b.com"))
	assert.NotContains(t, out, `"https://a.com"`)
}

func TestWrapLinksInHTML_AddsSignatureWhenMissing(t *testing.T) {
	out := WrapLinksInHTML(`<a href="https://a.com">A</a>`, "https://t.example.com/track/click/tid", "abcd")
	assert.Contains(t, out, "https://t.example.com/track/click/tid?sig=abcd&amp;url=")
}

func TestWrapLinksInHTML_EmptyBase(t *testing.T) {
	in := `<a href="https://a.com">A</a>`
	assert.Equal(t, in, WrapLinksInHTML(in, "", "abcd"))
}
