// Package crm submits captured leads to the sales CRM.
package crm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lukasbauer/hypoteka/internal/profile"
)

// Lead is the profile snapshot handed to the CRM when contact info first
// appears in a session.
type Lead struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	TenantID    string          `json:"tenant_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Score       int             `json:"score"`
	Temperature string          `json:"temperature"`
	Phase       string          `json:"phase"`
	Persona     string          `json:"persona"`
	Trigger     string          `json:"trigger"`
	Profile     profile.Profile `json:"profile"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewLead builds a lead from the profile. Contact fields are copied out of
// the profile so the CRM does not have to dig for them.
func NewLead(sessionID, tenantID string, p profile.Profile, now time.Time) Lead {
	name, _ := p.String(profile.FieldName)
	email, _ := p.String(profile.FieldEmail)
	phone, _ := p.String(profile.FieldPhone)
	return Lead{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		TenantID:  tenantID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Profile:   p.Clone(),
		CreatedAt: now.UTC(),
	}
}

// Result carries the identifiers the CRM assigned. Any of them may be empty.
type Result struct {
	LeadID    string `json:"lead_id,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	DealID    string `json:"deal_id,omitempty"`
}

// Submitter creates a lead in the CRM.
type Submitter interface {
	Submit(ctx context.Context, lead Lead) (Result, error)
}
