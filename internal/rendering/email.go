package rendering

import (
	"html"
	"html/template"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Placeholders resolved once tracking URLs are issued
const (
	TrackingURLPlaceholder    = "{{tracking_url}}"
	UnsubscribeURLPlaceholder = "{{unsubscribe_url}}"
)

// fallbackLayout is a fixed single-column table layout. Delimiters are changed so the
// tracking placeholders survive template execution.
const fallbackLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>[[.Subject]]</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f4;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0" style="background-color:#f4f4f4;">
<tr>
<td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" border="0" style="max-width:600px;background-color:#ffffff;">
<tr>
<td style="padding:32px;font-family:Arial,Helvetica,sans-serif;font-size:15px;line-height:1.6;color:#222222;">
[[.Body]]
</td>
</tr>
<tr>
<td style="padding:16px 32px;font-family:Arial,Helvetica,sans-serif;font-size:12px;color:#888888;border-top:1px solid #eeeeee;">
<a href="{{unsubscribe_url}}" style="color:#888888;">Unsubscribe</a>
</td>
</tr>
</table>
</td>
</tr>
</table>
<img src="{{tracking_url}}" width="1" height="1" alt="" style="display:block;border:0;">
</body>
</html>
`

var fallbackTemplate = template.Must(template.New("fallback").Delims("[[", "]]").Parse(fallbackLayout))

type layoutData struct {
	Subject string
	Body    template.HTML
}

// FallbackHTML renders email in the fixed layout. The body is escaped, so the output
// depends only on the email and never fails for valid UTF-8 input.
func FallbackHTML(email types.PersonalizedEmail) (string, error) {
	var out strings.Builder
	err := fallbackTemplate.Execute(&out, layoutData{
		Subject: email.Subject,
		Body:    template.HTML(BodyToHTML(email.Body)), //nolint:gosec // escaped by BodyToHTML
	})
	if err != nil {
		return "", &TemplateError{Message: "failed to execute fallback layout", Cause: err}
	}
	return out.String(), nil
}

// EnsureTrackingPlaceholders adds a pixel and an unsubscribe link when the HTML lacks them
func EnsureTrackingPlaceholders(body string) string {
	if !strings.Contains(body, UnsubscribeURLPlaceholder) {
		body = insertBeforeBodyEnd(body, `<p style="font-size:12px;color:#888888;"><a href="`+UnsubscribeURLPlaceholder+`" style="color:#888888;">Unsubscribe</a></p>`)
	}
	if !strings.Contains(body, TrackingURLPlaceholder) {
		body = insertBeforeBodyEnd(body, `<img src="`+TrackingURLPlaceholder+`" width="1" height="1" alt="" style="display:block;border:0;">`)
	}
	return body
}

// SubstituteTracking replaces the tracking placeholders with issued URLs
func SubstituteTracking(body, pixelURL, unsubscribeURL string) string {
	return strings.NewReplacer(
		TrackingURLPlaceholder, html.EscapeString(pixelURL),
		UnsubscribeURLPlaceholder, html.EscapeString(unsubscribeURL),
	).Replace(body)
}

func insertBeforeBodyEnd(body, fragment string) string {
	idx := strings.LastIndex(strings.ToLower(body), "</body>")
	if idx < 0 {
		return body + "\n" + fragment
	}
	return body[:idx] + fragment + "\n" + body[idx:]
}
