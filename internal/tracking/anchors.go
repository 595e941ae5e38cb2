package tracking

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// rewriteAnchors tokenizes body and offers the href of every <a> start tag to rewrite.
// Rewritten start tags are re-serialized; all other tokens are copied byte for byte so
// template placeholders and the surrounding markup survive untouched. closed receives the
// raw inner HTML of each rewritten anchor, in order, once the anchor ends. An anchor ends
// at its end tag, at the next <a> start tag, or at the end of the document.
func rewriteAnchors(body string, rewrite func(href string) (string, bool), closed func(inner string)) string {
	z := html.NewTokenizer(strings.NewReader(body))

	var out strings.Builder
	out.Grow(len(body))
	var inner *strings.Builder

	finish := func() {
		if inner == nil {
			return
		}
		if closed != nil {
			closed(inner.String())
		}
		inner = nil
	}

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			out.Write(z.Raw())
			finish()
			return out.String()
		}

		// Raw must be copied before Token, which lower-cases the tag name in place
		raw := string(z.Raw())
		tok := z.Token()

		if tok.DataAtom == atom.A {
			switch tt {
			case html.EndTagToken:
				finish()
				out.WriteString(raw)
				continue
			case html.StartTagToken, html.SelfClosingTagToken:
				finish()
				if i := hrefIndex(tok.Attr); i >= 0 {
					if href, ok := rewrite(strings.TrimSpace(tok.Attr[i].Val)); ok {
						tok.Attr[i].Val = href
						out.WriteString(tok.String())
						inner = &strings.Builder{}
						if tt == html.SelfClosingTagToken {
							finish()
						}
						continue
					}
				}
				out.WriteString(raw)
				continue
			}
		}

		out.WriteString(raw)
		if inner != nil {
			inner.WriteString(raw)
		}
	}
}

func hrefIndex(attrs []html.Attribute) int {
	for i, a := range attrs {
		if a.Namespace == "" && a.Key == "href" {
			return i
		}
	}
	return -1
}
