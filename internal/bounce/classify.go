// Package bounce classifies delivery-failure reports into an actionable taxonomy.
//
// Classification is a pure decision table: no I/O, identical input always yields
// identical output, and anything that cannot be classified confidently is reported
// as an unsuppressed soft bounce.
package bounce

import (
	"regexp"
	"strings"

	"github.com/Champ-Deep/ChampMail-sub000/internal/types"
)

// Report is one raw delivery-failure report
type Report struct {
	SMTPCode   string // "550", "5.1.1", "" when unknown
	Response   string // SMTP response text
	Diagnostic string // Diagnostic-Code or other free text
	Hint       string // Optional caller-supplied type: "hard", "soft", "complaint", "unsubscribe", "out_of_office"
}

var (
	invalidRecipientPatterns = []string{
		"user unknown", "unknown user", "no such user", "no such recipient", "user not found",
		"recipient not found", "mailbox not found", "mailbox unavailable", "does not exist",
		"invalid recipient", "invalid address", "address rejected", "recipient rejected",
		"no mailbox", "account disabled", "account has been disabled", "unrouteable address",
	}
	spamBlockPatterns = []string{
		"blacklist", "blocklist", "black list", "block list", "spamhaus", "spamcop",
		"listed at", "listed on", "blocked for spam", "message rejected as spam", "poor reputation",
	}
	outOfOfficePatterns = []string{
		"out of office", "out of the office", "auto-reply", "autoreply", "automatic reply",
		"on vacation", "on leave", "away from the office", "away from my desk",
	}
	unsubscribePatterns = []string{
		"unsubscribe", "remove me", "opt out", "opt-out", "stop emailing", "take me off",
	}
	complaintPatterns = []string{
		"spam complaint", "marked as spam", "reported as spam", "abuse report", "complaint", "feedback loop",
	}
	hardKeywords = []string{
		"permanent", "permanently", "user unknown", "no such user", "does not exist",
		"mailbox not found", "invalid address", "address rejected", "domain not found", "no mx",
	}
	softKeywords = []string{
		"mailbox full", "over quota", "quota exceeded", "temporarily", "temporary", "try again",
		"deferred", "greylist", "greylisted", "timeout", "timed out", "rate limit", "too many",
		"insufficient storage", "service unavailable",
	}

	// rbl only as a whole word
	rblPattern = regexp.MustCompile(`\brbls?\b`)

	leadingCodePattern = regexp.MustCompile(`^\s*([245])\d\d\b`)
)

// Classify maps a report to a classification using a fixed precedence:
// status class / hard hint, soft class / soft hint, out-of-office, unsubscribe,
// spam complaint, keyword lists, then the conservative default.
func Classify(r Report) types.BounceClassification {
	text := strings.ToLower(strings.TrimSpace(r.Response + " " + r.Diagnostic))
	hint := normalizeHint(r.Hint)
	class := statusClass(r.SMTPCode, r.Response)

	switch {
	case class == '5' || hint == "hard":
		return hardBounce(text)
	case class == '4' || hint == "soft":
		return types.BounceClassification{
			BounceType:     types.BounceSoft,
			Category:       types.CategoryTemporaryFailure,
			ShouldSuppress: false,
			Description:    "Temporary delivery failure; the address may be retried later",
		}
	case hint == "out_of_office" || containsAny(text, outOfOfficePatterns):
		return types.BounceClassification{
			BounceType:     types.BounceOutOfOffice,
			Category:       types.CategoryAutoReply,
			ShouldSuppress: false,
			Description:    "Automatic out-of-office reply",
		}
	case hint == "unsubscribe" || containsAny(text, unsubscribePatterns):
		return types.BounceClassification{
			BounceType:     types.BounceUnsubscribe,
			Category:       types.CategoryUnsubscribe,
			ShouldSuppress: true,
			Description:    "Recipient asked to stop receiving email",
		}
	case hint == "complaint" || containsAny(text, complaintPatterns):
		return types.BounceClassification{
			BounceType:     types.BounceHard,
			Category:       types.CategorySpamComplaint,
			ShouldSuppress: true,
			Description:    "Recipient reported the message as spam",
		}
	case containsAny(text, hardKeywords):
		return hardBounce(text)
	case containsAny(text, softKeywords):
		return types.BounceClassification{
			BounceType:     types.BounceSoft,
			Category:       types.CategoryTemporaryFailure,
			ShouldSuppress: false,
			Description:    "Temporary delivery failure inferred from the response text",
		}
	default:
		return types.BounceClassification{
			BounceType:     types.BounceSoft,
			Category:       types.CategoryUnknown,
			ShouldSuppress: false,
			Description:    "Unclassified delivery failure; contact left active",
		}
	}
}

// hardBounce sub-categorizes a permanent failure
func hardBounce(text string) types.BounceClassification {
	switch {
	case containsAny(text, invalidRecipientPatterns):
		return types.BounceClassification{
			BounceType:     types.BounceHard,
			Category:       types.CategoryInvalidRecipient,
			ShouldSuppress: true,
			Description:    "Recipient address does not exist",
		}
	case containsAny(text, spamBlockPatterns) || rblPattern.MatchString(text):
		return types.BounceClassification{
			BounceType:     types.BounceHard,
			Category:       types.CategorySpamBlock,
			ShouldSuppress: true,
			Description:    "Message blocked by a spam filter or blocklist",
		}
	default:
		return types.BounceClassification{
			BounceType:     types.BounceHard,
			Category:       types.CategoryPermanentFailure,
			ShouldSuppress: true,
			Description:    "Permanent delivery failure",
		}
	}
}

// statusClass returns '4' or '5' for transient/permanent status codes, or 0.
// The explicit code wins; otherwise a leading three-digit code in the response is used.
func statusClass(code, response string) byte {
	code = strings.TrimSpace(code)
	if code != "" {
		switch code[0] {
		case '4', '5':
			return code[0]
		}
		return 0
	}
	if m := leadingCodePattern.FindStringSubmatch(response); m != nil {
		switch m[1][0] {
		case '4', '5':
			return m[1][0]
		}
	}
	return 0
}

func normalizeHint(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	switch hint {
	case "hard", "hard_bounce", "permanent":
		return "hard"
	case "soft", "soft_bounce", "transient", "temporary":
		return "soft"
	case "complaint", "spam", "spam_complaint", "abuse":
		return "complaint"
	case "unsubscribe", "unsubscribed":
		return "unsubscribe"
	case "out_of_office", "ooo", "auto_reply", "autoreply":
		return "out_of_office"
	default:
		return ""
	}
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
