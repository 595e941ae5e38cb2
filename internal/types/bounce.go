package types

// Bounce types
const (
	BounceHard        = "hard_bounce"
	BounceSoft        = "soft_bounce"
	BounceOutOfOffice = "out_of_office"
	BounceUnsubscribe = "unsubscribe"
	BounceUnknown     = "unknown"
)

// Bounce categories
const (
	CategoryInvalidRecipient = "invalid_recipient"
	CategorySpamBlock        = "spam_block"
	CategoryPermanentFailure = "permanent_failure"
	CategoryTemporaryFailure = "temporary_failure"
	CategoryAutoReply        = "auto_reply"
	CategoryUnsubscribe      = "unsubscribe_request"
	CategorySpamComplaint    = "spam_complaint"
	CategoryUnknown          = "unknown"
)

// BounceClassification is the result of classifying one delivery-failure report
type BounceClassification struct {
	BounceType     string `json:"bounce_type"`
	Category       string `json:"category"`
	ShouldSuppress bool   `json:"should_suppress"`
	Description    string `json:"description"`
}

// SendRecord is the persisted record of one outbound send, located by message ID
type SendRecord struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	ProspectID string `json:"prospect_id"`
	MessageID  string `json:"message_id"`
}
