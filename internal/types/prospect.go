// Package types provides type definitions for structured data used throughout the outreach engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// Prospect is a single recipient of a campaign as loaded from the relational store
type Prospect struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Title        string `json:"title,omitempty"`
	Company      string `json:"company,omitempty"`
	Industry     string `json:"industry,omitempty"`
	CompanySize  int    `json:"company_size,omitempty"` // Employee count, 0 if unknown
	Timezone     string `json:"timezone,omitempty"`     // IANA name, e.g. "Europe/Berlin"
	Website      string `json:"website,omitempty"`
	ResearchText string `json:"research_text,omitempty"` // Cached free-text research, used for timezone hints
	Status       string `json:"status,omitempty"`
}

// Prospect contactability statuses
const (
	ProspectStatusActive       = "active"
	ProspectStatusBounced      = "bounced"
	ProspectStatusDoNotContact = "do_not_contact"
	ProspectStatusUnsubscribed = "unsubscribed"
)

// FullName returns the prospect's first and last name joined by a space
func (p Prospect) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// EmailDomain returns the lower-cased domain part of the prospect's email address
func (p Prospect) EmailDomain() string {
	at := strings.LastIndex(p.Email, "@")
	if at < 0 || at == len(p.Email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.Email[at+1:]))
}

// Campaign statuses as stored externally
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusActive    = "active"
	CampaignStatusScheduled = "scheduled"
)

// Company size buckets
const (
	CompanySizeStartup    = "startup"    // 1-50
	CompanySizeSMB        = "smb"        // 51-200
	CompanySizeMidMarket  = "mid-market" // 201-1000
	CompanySizeEnterprise = "enterprise" // 1001+
)

// CompanySizeBucket maps an employee count to a size bucket, or "" when unknown
func CompanySizeBucket(employees int) string {
	switch {
	case employees <= 0:
		return ""
	case employees <= 50:
		return CompanySizeStartup
	case employees <= 200:
		return CompanySizeSMB
	case employees <= 1000:
		return CompanySizeMidMarket
	default:
		return CompanySizeEnterprise
	}
}
