package scheduler

import (
	"strings"
	"time"

	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// DefaultTimezone is used when nothing better can be inferred
const DefaultTimezone = "America/New_York"

// Timezone sources, reported alongside the inferred zone
const (
	SourceExplicit = "explicit"
	SourceDomain   = "domain"
	SourceResearch = "research"
	SourceDefault  = "default"
)

var tldTimezones = map[string]string{
	"uk": "Europe/London",
	"ie": "Europe/Dublin",
	"de": "Europe/Berlin",
	"fr": "Europe/Paris",
	"es": "Europe/Madrid",
	"it": "Europe/Rome",
	"nl": "Europe/Amsterdam",
	"be": "Europe/Brussels",
	"ch": "Europe/Zurich",
	"at": "Europe/Vienna",
	"se": "Europe/Stockholm",
	"no": "Europe/Oslo",
	"dk": "Europe/Copenhagen",
	"fi": "Europe/Helsinki",
	"pl": "Europe/Warsaw",
	"pt": "Europe/Lisbon",
	"il": "Asia/Jerusalem",
	"ae": "Asia/Dubai",
	"in": "Asia/Kolkata",
	"sg": "Asia/Singapore",
	"hk": "Asia/Hong_Kong",
	"cn": "Asia/Shanghai",
	"jp": "Asia/Tokyo",
	"kr": "Asia/Seoul",
	"au": "Australia/Sydney",
	"nz": "Pacific/Auckland",
	"ca": "America/Toronto",
	"mx": "America/Mexico_City",
	"br": "America/Sao_Paulo",
	"za": "Africa/Johannesburg",
	"us": "America/New_York",
	// the common commercial suffixes settle on US Eastern without a research scan
	"com": DefaultTimezone,
	"io":  DefaultTimezone,
	"co":  DefaultTimezone,
}

// genericTLDs say nothing about location; research text gets a chance before the default
var genericTLDs = map[string]bool{
	"net": true, "org": true, "ai": true, "app": true, "dev": true, "biz": true, "info": true,
}

// cityTimezones is scanned in order; more specific names come before names they contain
var cityTimezones = []struct {
	city string
	zone string
}{
	{"san francisco", "America/Los_Angeles"},
	{"silicon valley", "America/Los_Angeles"},
	{"los angeles", "America/Los_Angeles"},
	{"san diego", "America/Los_Angeles"},
	{"seattle", "America/Los_Angeles"},
	{"portland", "America/Los_Angeles"},
	{"vancouver", "America/Vancouver"},
	{"denver", "America/Denver"},
	{"phoenix", "America/Phoenix"},
	{"chicago", "America/Chicago"},
	{"austin", "America/Chicago"},
	{"dallas", "America/Chicago"},
	{"houston", "America/Chicago"},
	{"new york", "America/New_York"},
	{"boston", "America/New_York"},
	{"miami", "America/New_York"},
	{"atlanta", "America/New_York"},
	{"washington", "America/New_York"},
	{"toronto", "America/Toronto"},
	{"london", "Europe/London"},
	{"dublin", "Europe/Dublin"},
	{"berlin", "Europe/Berlin"},
	{"munich", "Europe/Berlin"},
	{"paris", "Europe/Paris"},
	{"amsterdam", "Europe/Amsterdam"},
	{"madrid", "Europe/Madrid"},
	{"stockholm", "Europe/Stockholm"},
	{"zurich", "Europe/Zurich"},
	{"tel aviv", "Asia/Jerusalem"},
	{"dubai", "Asia/Dubai"},
	{"bangalore", "Asia/Kolkata"},
	{"bengaluru", "Asia/Kolkata"},
	{"mumbai", "Asia/Kolkata"},
	{"singapore", "Asia/Singapore"},
	{"tokyo", "Asia/Tokyo"},
	{"sydney", "Australia/Sydney"},
	{"melbourne", "Australia/Melbourne"},
}

// InferTimezone picks the prospect's zone: an explicit zone, then the email domain's
// country suffix, then a city named in the cached research, then US Eastern.
// An explicit zone that fails to load is ignored.
func InferTimezone(p types.Prospect, explicit string) (*time.Location, string) {
	for _, name := range []string{explicit, p.Timezone} {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, SourceExplicit
		}
	}

	if zone, ok := zoneForDomain(p.EmailDomain()); ok {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc, SourceDomain
		}
	}

	if research := strings.ToLower(p.ResearchText); research != "" {
		for _, c := range cityTimezones {
			if strings.Contains(research, c.city) {
				if loc, err := time.LoadLocation(c.zone); err == nil {
					return loc, SourceResearch
				}
			}
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC, SourceDefault
	}
	return loc, SourceDefault
}

func zoneForDomain(domain string) (string, bool) {
	if domain == "" {
		return "", false
	}
	tld := domain[strings.LastIndex(domain, ".")+1:]
	if genericTLDs[tld] {
		return "", false
	}
	zone, ok := tldTimezones[tld]
	return zone, ok
}
