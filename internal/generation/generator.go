// Package generation implements the pipeline's content collaborators on top of an LLM client.
// Every structured response is checked against an embedded JSON Schema before it is decoded.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/llm"
	"github.com/Champ-Deep/ChampMail-sub000/internal/logging"
	"github.com/Champ-Deep/ChampMail-sub000/internal/prompts"
	"github.com/Champ-Deep/ChampMail-sub000/internal/schemas"
	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// OutputError reports model output that could not be used
type OutputError struct {
	Step  string
	Cause error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("unusable %s output: %v", e.Step, e.Cause)
}

func (e *OutputError) Unwrap() error {
	return e.Cause
}

// Generator produces essences, research, segments, pitches and HTML with an LLM
type Generator struct {
	client  llm.Client
	prompts *prompts.Set
	system  string
	logger  logging.Logger
}

// New creates a generator
func New(client llm.Client, logger logging.Logger) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	set, err := prompts.Outreach()
	if err != nil {
		return nil, err
	}
	system, err := set.Get(prompts.KeySystem)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Generator{client: client, prompts: set, system: system, logger: logger}, nil
}

// ExtractEssence distills the campaign brief into a messaging framework
func (g *Generator) ExtractEssence(ctx context.Context, description string, goals types.SegmentGoals) (*types.Essence, error) {
	prompt, err := g.prompt(prompts.KeyExtractEssence, map[string]string{
		"Description":    description,
		"TargetAudience": orNotSpecified(goals.TargetAudience),
		"Style":          orNotSpecified(goals.Style),
		"Goals":          orNotSpecified(goals.Goals),
	})
	if err != nil {
		return nil, err
	}

	var essence types.Essence
	if err := g.generateJSON(ctx, "essence", prompt, llm.TierStandard, schemas.Essence, &essence); err != nil {
		return nil, err
	}
	return &essence, nil
}

// ResearchProspect summarizes one prospect
func (g *Generator) ResearchProspect(ctx context.Context, p types.Prospect) (*types.ProspectResearch, error) {
	prompt, err := g.prompt(prompts.KeyResearchProspect, map[string]string{
		"Name":     orNotSpecified(p.FullName()),
		"Title":    orNotSpecified(p.Title),
		"Company":  orNotSpecified(p.Company),
		"Industry": orNotSpecified(p.Industry),
		"Website":  orNotSpecified(p.Website),
		"Notes":    p.ResearchText,
	})
	if err != nil {
		return nil, err
	}

	var research types.ProspectResearch
	if err := g.generateJSON(ctx, "research", prompt, llm.TierLite, schemas.Research, &research); err != nil {
		return nil, err
	}
	research.ProspectID = p.ID
	research.Fallback = false
	return &research, nil
}

// Segment groups researched prospects. An empty list is returned as is.
func (g *Generator) Segment(ctx context.Context, essence *types.Essence, research []types.ProspectResearch, goals types.SegmentGoals) ([]types.Segment, error) {
	essenceJSON, err := json.Marshal(essence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode essence: %w", err)
	}
	researchJSON, err := json.Marshal(research)
	if err != nil {
		return nil, fmt.Errorf("failed to encode research: %w", err)
	}
	prompt, err := g.prompt(prompts.KeySegmentProspects, map[string]string{
		"Essence":        string(essenceJSON),
		"Research":       string(researchJSON),
		"TargetAudience": orNotSpecified(goals.TargetAudience),
		"Goals":          orNotSpecified(goals.Goals),
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Segments []types.Segment `json:"segments"`
	}
	if err := g.generateJSON(ctx, "segments", prompt, llm.TierStandard, schemas.Segments, &out); err != nil {
		return nil, err
	}
	return out.Segments, nil
}

// GeneratePitch writes the segment's email template
func (g *Generator) GeneratePitch(ctx context.Context, essence *types.Essence, seg types.Segment, samples []types.ProspectResearch) (*types.Pitch, error) {
	essenceJSON, err := json.Marshal(essence)
	if err != nil {
		return nil, fmt.Errorf("failed to encode essence: %w", err)
	}
	segmentJSON, err := json.Marshal(seg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segment: %w", err)
	}
	samplesJSON, err := json.Marshal(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to encode samples: %w", err)
	}
	prompt, err := g.prompt(prompts.KeyGeneratePitch, map[string]string{
		"Essence": string(essenceJSON),
		"Segment": string(segmentJSON),
		"Samples": string(samplesJSON),
	})
	if err != nil {
		return nil, err
	}

	var pitch types.Pitch
	if err := g.generateJSON(ctx, "pitch", prompt, llm.TierAdvanced, schemas.Pitch, &pitch); err != nil {
		return nil, err
	}
	pitch.SegmentID = seg.ID
	pitch.Fallback = false
	return &pitch, nil
}

// RenderHTML lays the personalized email out as an HTML document
func (g *Generator) RenderHTML(ctx context.Context, email types.PersonalizedEmail, essence *types.Essence) (string, error) {
	tone := ""
	if essence != nil {
		tone = essence.Tone
	}
	prompt, err := g.prompt(prompts.KeyRenderHTML, map[string]string{
		"Subject": email.Subject,
		"Body":    email.Body,
		"Tone":    orNotSpecified(tone),
	})
	if err != nil {
		return "", err
	}

	text, err := g.client.GenerateText(ctx, g.system, prompt, llm.TierAdvanced)
	if err != nil {
		return "", err
	}
	html := stripFence(text)
	if !looksLikeHTML(html) {
		return "", &OutputError{Step: "html", Cause: fmt.Errorf("response is not an HTML document")}
	}
	return html, nil
}

func (g *Generator) prompt(key string, data map[string]string) (string, error) {
	return g.prompts.Render(key, data)
}

func (g *Generator) generateJSON(ctx context.Context, step, prompt string, tier llm.ModelTier, schema string, dst any) error {
	text, err := g.client.GenerateJSON(ctx, g.system, prompt, tier)
	if err != nil {
		return err
	}
	if err := schemas.Validate(schema, []byte(text)); err != nil {
		g.logger.WithField("step", step).WithError(err).Debug("Model output failed schema validation")
		return &OutputError{Step: step, Cause: err}
	}
	if err := json.Unmarshal([]byte(text), dst); err != nil {
		return &OutputError{Step: step, Cause: err}
	}
	return nil
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "html")
	if end := strings.LastIndex(text, "```"); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<body") ||
		strings.Contains(lower, "<table") || strings.Contains(lower, "<p")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
