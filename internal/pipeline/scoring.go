package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Weights are the scoring heuristics for segment assignment and pitch samples.
// Only their relative order matters.
type Weights struct {
	Industry     int // prospect industry matches a segment industry
	Role         int // prospect title matches a segment role
	CompanySize  int // prospect company size falls in a segment size bucket
	HighPriority int // bonus for a high-priority segment that already matched

	SampleIndustry int
	SampleRole     int
	SampleCount    int
}

// DefaultWeights returns the standard weights
func DefaultWeights() Weights {
	return Weights{
		Industry:       3,
		Role:           3,
		CompanySize:    1,
		HighPriority:   1,
		SampleIndustry: 2,
		SampleRole:     1,
		SampleCount:    3,
	}
}

// AssignSegment picks the best segment for a prospect. High-priority segments always get
// their bonus. Ties go to the earlier segment and the first segment wins when nothing
// scores above zero. research may be nil.
func AssignSegment(p types.Prospect, research *types.ProspectResearch, segments []types.Segment, w Weights) types.Segment {
	if len(segments) == 0 {
		return types.Segment{}
	}
	industry, title := p.Industry, p.Title
	if research != nil {
		if industry == "" {
			industry = research.Industry
		}
		if title == "" {
			title = research.Title
		}
	}

	best, bestScore := 0, 0
	for i, seg := range segments {
		score := 0
		if matchesAny(industry, seg.Criteria.Industries) {
			score += w.Industry
		}
		if matchesAny(title, seg.Criteria.Roles) {
			score += w.Role
		}
		if matchesSize(p.CompanySize, seg.Criteria.CompanySizes) {
			score += w.CompanySize
		}
		if strings.EqualFold(seg.Priority, types.SegmentPriorityHigh) {
			score += w.HighPriority
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return segments[best]
}

// SelectSamples returns the research records most relevant to a segment
func SelectSamples(research []types.ProspectResearch, seg types.Segment, w Weights) []types.ProspectResearch {
	type scored struct {
		r     types.ProspectResearch
		score int
	}
	candidates := make([]scored, 0, len(research))
	for _, r := range research {
		score := 0
		if matchesAny(r.Industry, seg.Criteria.Industries) {
			score += w.SampleIndustry
		}
		if matchesAny(r.Title, seg.Criteria.Roles) {
			score += w.SampleRole
		}
		candidates = append(candidates, scored{r: r, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	n := w.SampleCount
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	samples := make([]types.ProspectResearch, n)
	for i := range samples {
		samples[i] = candidates[i].r
	}
	return samples
}

// matchesAny reports whether value and any keyword contain one another, ignoring case
func matchesAny(value string, keywords []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.Contains(value, k) || strings.Contains(k, value) {
			return true
		}
	}
	return false
}

// matchesSize accepts bucket names ("smb") and ranges ("51-200", "1000+")
func matchesSize(employees int, sizes []string) bool {
	if employees <= 0 {
		return false
	}
	bucket := types.CompanySizeBucket(employees)
	for _, s := range sizes {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == bucket {
			return true
		}
		if lo, hi, ok := parseSizeRange(s); ok && employees >= lo && employees <= hi {
			return true
		}
	}
	return false
}

func parseSizeRange(s string) (int, int, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasSuffix(s, "+") {
		lo, err := strconv.Atoi(strings.TrimSuffix(s, "+"))
		if err != nil {
			return 0, 0, false
		}
		return lo, int(^uint(0) >> 1), true
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	l, err1 := strconv.Atoi(strings.TrimSpace(lo))
	h, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil || l > h {
		return 0, 0, false
	}
	return l, h, true
}
