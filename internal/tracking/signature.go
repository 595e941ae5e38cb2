package tracking

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	idPartLength    = 8
	signatureLength = 16
)

// Signer issues and checks tracking ID signatures
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given server secret
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns HMAC-SHA256(secret, trackingID) truncated to 16 hex characters
func (s *Signer) Sign(trackingID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(trackingID))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// Verify compares in constant time
func (s *Signer) Verify(trackingID, signature string) bool {
	if trackingID == "" || len(signature) != signatureLength {
		return false
	}
	return hmac.Equal([]byte(s.Sign(trackingID)), []byte(signature))
}

// NewTrackingID builds first8(campaign) + first8(prospect) + 8 random hex characters
func NewTrackingID(campaignID, prospectID string) (string, error) {
	buf := make([]byte, idPartLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate tracking suffix: %w", err)
	}
	return prefix(campaignID) + prefix(prospectID) + hex.EncodeToString(buf), nil
}

func prefix(id string) string {
	if len(id) <= idPartLength {
		return id
	}
	return id[:idPartLength]
}
