package types

// Essence is the messaging framework distilled from a free-text campaign brief
type Essence struct {
	ValuePropositions []string `json:"value_propositions"`
	PainPoints        []string `json:"pain_points"`
	Tone              string   `json:"tone"`
	CallToAction      string   `json:"call_to_action"`
	TargetPersona     string   `json:"target_persona"`
}

// ProspectResearch is the research collaborator's output for one prospect
type ProspectResearch struct {
	ProspectID     string   `json:"prospect_id"`
	Summary        string   `json:"summary,omitempty"`
	RecentNews     string   `json:"recent_news,omitempty"`
	RelevantDetail string   `json:"relevant_detail,omitempty"`
	PainPoints     []string `json:"pain_points,omitempty"`
	Industry       string   `json:"industry,omitempty"`
	Title          string   `json:"title,omitempty"`
	Company        string   `json:"company,omitempty"`
	// Fallback is set when the research call failed and the record was built from the prospect alone
	Fallback bool `json:"fallback,omitempty"`
}

// SegmentCriteria lists the targeting keywords a segment matches on
type SegmentCriteria struct {
	Industries   []string `json:"industries,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	CompanySizes []string `json:"company_sizes,omitempty"` // Size buckets, see CompanySizeBucket
}

// Segment is a cluster of prospects sharing targeting criteria
type Segment struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Criteria    SegmentCriteria `json:"criteria"`
	Priority    string          `json:"priority,omitempty"` // "high", "medium", "low"
}

// SegmentPriorityHigh marks a segment that wins borderline assignments
const SegmentPriorityHigh = "high"

// SegmentGoals carries the caller's stated intent into segmentation
type SegmentGoals struct {
	TargetAudience string `json:"target_audience,omitempty"`
	Style          string `json:"style,omitempty"`
	Goals          string `json:"goals,omitempty"`
}

// Pitch is a segment-level email template with placeholders
type Pitch struct {
	SegmentID         string   `json:"segment_id"`
	SubjectLines      []string `json:"subject_lines"`
	Body              string   `json:"body"`
	FollowUpTemplates []string `json:"follow_up_templates,omitempty"`
	// Fallback is set when the pitch was built locally because the pitch call failed
	Fallback bool `json:"fallback,omitempty"`
}

// Subject returns the first subject line variant, or an empty string
func (p Pitch) Subject() string {
	if len(p.SubjectLines) == 0 {
		return ""
	}
	return p.SubjectLines[0]
}

// PitchBySegment maps segment IDs to their pitch
type PitchBySegment map[string]Pitch

// PersonalizedEmail is a pitch with every placeholder resolved for one prospect
type PersonalizedEmail struct {
	ProspectID    string `json:"prospect_id"`
	ProspectEmail string `json:"prospect_email"`
	SegmentID     string `json:"segment_id"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

// RenderedEmail is the HTML version of a personalized email
type RenderedEmail struct {
	ProspectID    string `json:"prospect_id"`
	ProspectEmail string `json:"prospect_email"`
	SegmentID     string `json:"segment_id"`
	Subject       string `json:"subject"`
	HTML          string `json:"html"`
	// Fallback is set when the HTML collaborator failed and the fixed layout was used
	Fallback bool `json:"fallback,omitempty"`
}
