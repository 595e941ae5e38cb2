// Package prompts holds the content-generation prompt templates embedded from outreach.json.
//
// Templates use {{.Name}} placeholders for the values the generator supplies. Email merge
// tags such as {{firstName}} have no dot and are left for personalization.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Prompt keys in outreach.json
const (
	KeySystem           = "system"
	KeyExtractEssence   = "extract-essence"
	KeyResearchProspect = "research-prospect"
	KeySegmentProspects = "segment-prospects"
	KeyGeneratePitch    = "generate-pitch"
	KeyRenderHTML       = "render-html"
)

// RequiredKeys must all be present for the generator to run
var RequiredKeys = []string{
	KeySystem, KeyExtractEssence, KeyResearchProspect, KeySegmentProspects, KeyGeneratePitch, KeyRenderHTML,
}

//go:embed outreach.json
var outreachJSON []byte

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

// MissingValueError reports placeholders a render call left without a value
type MissingValueError struct {
	Key     string
	Missing []string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("prompt %q: no value for %s", e.Key, strings.Join(e.Missing, ", "))
}

// Set is a parsed prompt file
type Set struct {
	templates map[string]string
}

var (
	outreachOnce sync.Once
	outreach     *Set
	outreachErr  error
)

// Outreach returns the embedded prompt set, parsed on first use
func Outreach() (*Set, error) {
	outreachOnce.Do(func() {
		outreach, outreachErr = Parse(outreachJSON, RequiredKeys...)
	})
	return outreach, outreachErr
}

// Parse decodes a JSON object of key to template and checks that every required key is present
func Parse(data []byte, required ...string) (*Set, error) {
	var templates map[string]string
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	var missing []string
	for _, key := range required {
		if strings.TrimSpace(templates[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("prompts missing: %s", strings.Join(missing, ", "))
	}
	return &Set{templates: templates}, nil
}

// Get returns the raw template for key
func (s *Set) Get(key string) (string, error) {
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return tmpl, nil
}

// Render substitutes every {{.Name}} in the template in a single pass, so values that
// themselves contain placeholders are not expanded. A placeholder whose name is absent
// from data is a MissingValueError; an empty value is fine.
func (s *Set) Render(key string, data map[string]string) (string, error) {
	tmpl, err := s.Get(key)
	if err != nil {
		return "", err
	}

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := data[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", &MissingValueError{Key: key, Missing: missing}
	}
	return out, nil
}

// Placeholders lists the distinct value names a template expects, sorted
func (s *Set) Placeholders(key string) ([]string, error) {
	tmpl, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names, nil
}

// Keys lists the templates in the set, sorted
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for key := range s.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
