// Package leadgate fires the CRM lead submission once per session, on the
// turn where contact information first appears.
package leadgate

import (
	"strings"

	"github.com/lukasbauer/hypoteka/internal/profile"
)

// Snapshot is the contact presence before any of this turn's updates are
// merged. It must be taken from the prior profile, otherwise the edge is
// never seen.
type Snapshot struct {
	HadEmail bool
	HadPhone bool
}

// Take snapshots prior.
func Take(prior profile.Profile) Snapshot {
	return Snapshot{HadEmail: prior.HasEmail(), HadPhone: prior.HasPhone()}
}

// Detect reports whether after brings contact info that before lacked.
// Once a lead is captured the gate stays shut for the session.
func Detect(before Snapshot, after profile.Profile, alreadyCaptured bool) bool {
	if alreadyCaptured || !after.HasContact() {
		return false
	}
	newEmail := !before.HadEmail && after.HasEmail()
	newPhone := !before.HadPhone && after.HasPhone()
	return newEmail || newPhone
}

// Trigger names the contact fields that became present, e.g. "email" or
// "email+phone".
func Trigger(before Snapshot, after profile.Profile) string {
	var parts []string
	if !before.HadEmail && after.HasEmail() {
		parts = append(parts, string(profile.FieldEmail))
	}
	if !before.HadPhone && after.HasPhone() {
		parts = append(parts, string(profile.FieldPhone))
	}
	return strings.Join(parts, "+")
}
