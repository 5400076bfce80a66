package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lukasbauer/hypoteka/internal/state"
	"gopkg.in/yaml.v3"
)

// Intensity controls how proactively the agent offers a specialist.
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

// ParseIntensity reads a configured intensity. Unknown values are medium.
func ParseIntensity(s string) Intensity {
	switch Intensity(strings.ToLower(strings.TrimSpace(s))) {
	case IntensityLow:
		return IntensityLow
	case IntensityHigh:
		return IntensityHigh
	default:
		return IntensityMedium
	}
}

// Fragments are the tenant supplied texts. They are inserted verbatim.
type Fragments struct {
	BaseIdentity     string                 `yaml:"base_identity"`
	Phases           map[state.Phase]string `yaml:"phases"`
	RateContext      string                 `yaml:"rate_context"`
	KnowledgeBase    []string               `yaml:"knowledge_base"`
	ContactIntensity Intensity              `yaml:"contact_intensity"`
	FinalReminder    string                 `yaml:"final_reminder"`
}

// DefaultFragments are used for tenants without their own configuration.
func DefaultFragments() Fragments {
	phases := make(map[state.Phase]string, len(defaultPhaseText))
	for k, v := range defaultPhaseText {
		phases[k] = v
	}
	return Fragments{
		BaseIdentity:     defaultBaseIdentity,
		Phases:           phases,
		ContactIntensity: IntensityMedium,
		FinalReminder:    defaultFinalReminder,
	}
}

// WithDefaults fills every blank fragment from DefaultFragments.
// RateContext and KnowledgeBase have no default and stay empty.
func (f Fragments) WithDefaults() Fragments {
	d := DefaultFragments()
	if strings.TrimSpace(f.BaseIdentity) == "" {
		f.BaseIdentity = d.BaseIdentity
	}
	if strings.TrimSpace(f.FinalReminder) == "" {
		f.FinalReminder = d.FinalReminder
	}
	phases := d.Phases
	for k, v := range f.Phases {
		if strings.TrimSpace(v) != "" {
			phases[k] = v
		}
	}
	f.Phases = phases
	f.ContactIntensity = ParseIntensity(string(f.ContactIntensity))
	return f
}

// LoadFragments parses a tenant fragment file:
//
//	base_identity: |
//	  Jsi Hypoteční asistent ...
//	phases:
//	  discovery: ...
//	rate_context: "Průměrná sazba 4,89 %"
//	knowledge_base:
//	  - ...
//	contact_intensity: medium
//
// Unknown keys are rejected so typos surface at load time.
func LoadFragments(r io.Reader) (Fragments, error) {
	var f Fragments
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return DefaultFragments(), nil
		}
		return Fragments{}, fmt.Errorf("prompt: parse fragments: %w", err)
	}
	for k := range f.Phases {
		if !isPhase(k) {
			return Fragments{}, fmt.Errorf("prompt: unknown phase %q in fragments", k)
		}
	}
	return f.WithDefaults(), nil
}

func isPhase(p state.Phase) bool {
	for _, known := range state.Phases {
		if p == known {
			return true
		}
	}
	return false
}
