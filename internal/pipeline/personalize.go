package pipeline

import (
	"fmt"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/rendering"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Personalize resolves every prospect placeholder in the pitch.
// Tracking placeholders are left for the finalize step.
func Personalize(p types.Prospect, research *types.ProspectResearch, seg types.Segment, pitch types.Pitch) types.PersonalizedEmail {
	r := placeholderReplacer(p, research)
	return types.PersonalizedEmail{
		ProspectID:    p.ID,
		ProspectEmail: p.Email,
		SegmentID:     seg.ID,
		Subject:       strings.TrimSpace(r.Replace(pitch.Subject())),
		Body:          r.Replace(pitch.Body),
	}
}

func placeholderReplacer(p types.Prospect, research *types.ProspectResearch) *strings.Replacer {
	var recentNews, relevantDetail, painPoint, summary string
	industry, title, company := p.Industry, p.Title, p.Company
	if research != nil {
		recentNews = research.RecentNews
		relevantDetail = research.RelevantDetail
		summary = research.Summary
		if len(research.PainPoints) > 0 {
			painPoint = research.PainPoints[0]
		}
		industry = firstNonEmpty(industry, research.Industry)
		title = firstNonEmpty(title, research.Title)
		company = firstNonEmpty(company, research.Company)
	}

	firstName := firstNonEmpty(p.FirstName, "there")
	companyName := firstNonEmpty(company, "your company")
	industry = firstNonEmpty(industry, "your industry")
	values := map[string]string{
		"firstName":       firstName,
		"lastName":        p.LastName,
		"fullName":        firstNonEmpty(p.FullName(), firstName),
		"companyName":     companyName,
		"company":         companyName,
		"industry":        industry,
		"title":           title,
		"email":           p.Email,
		"recentNews":      recentNews,
		"relevantDetail":  relevantDetail,
		"painPoint":       painPoint,
		"researchSummary": summary,
	}

	var pairs []string
	for name, value := range values {
		pairs = append(pairs,
			"{{"+name+"}}", value,
			"{{ "+name+" }}", value,
			"{{"+snakeCase(name)+"}}", value,
		)
	}
	return strings.NewReplacer(pairs...)
}

// FallbackResearch builds a research record from the prospect alone
func FallbackResearch(p types.Prospect) types.ProspectResearch {
	summary := strings.TrimSpace(strings.Join(nonEmpty(p.Title, p.Company), " at "))
	if summary == "" {
		summary = p.FullName()
	}
	return types.ProspectResearch{
		ProspectID: p.ID,
		Summary:    summary,
		Industry:   p.Industry,
		Title:      p.Title,
		Company:    p.Company,
		Fallback:   true,
	}
}

// FallbackPitch builds a deterministic pitch from the essence
func FallbackPitch(essence *types.Essence, seg types.Segment) types.Pitch {
	var body strings.Builder
	body.WriteString("Hi {{firstName}},\n\n")
	if essence != nil && len(essence.PainPoints) > 0 {
		fmt.Fprintf(&body, "Teams like {{companyName}} often tell us that %s.\n\n", strings.TrimSuffix(essence.PainPoints[0], "."))
	}
	if essence != nil && len(essence.ValuePropositions) > 0 {
		fmt.Fprintf(&body, "We help by %s.\n\n", lowerFirst(strings.TrimSuffix(essence.ValuePropositions[0], ".")))
	}
	cta := "Would you be open to a short call next week?"
	if essence != nil && essence.CallToAction != "" {
		cta = essence.CallToAction
	}
	body.WriteString(cta)
	body.WriteString("\n\nBest regards")

	return types.Pitch{
		SegmentID:    seg.ID,
		SubjectLines: []string{"Quick question for {{companyName}}"},
		Body:         body.String(),
		Fallback:     true,
	}
}

// FallbackEmailHTML renders the fixed layout, degrading to a bare escaped body
func FallbackEmailHTML(email types.PersonalizedEmail) string {
	out, err := rendering.FallbackHTML(email)
	if err != nil {
		return rendering.EnsureTrackingPlaceholders(rendering.BodyToHTML(email.Body))
	}
	return out
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
