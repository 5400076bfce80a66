// Package state derives the conversation phase and client persona from the
// reduced profile. Everything here is rebuilt from scratch every turn.
package state

import (
	"errors"
	"slices"
	"time"

	"github.com/lukasbauer/hypoteka/internal/profile"
)

// ErrNilState is returned when a caller passes no state at all. An empty
// state is valid; a missing one is a programming error.
var ErrNilState = errors.New("state: conversation state is nil")

type Phase string

const (
	PhaseGreeting      Phase = "greeting"
	PhaseDiscovery     Phase = "discovery"
	PhaseAnalysis      Phase = "analysis"
	PhaseQualification Phase = "qualification"
	PhaseConversion    Phase = "conversion"
	PhaseFollowup      Phase = "followup"
)

// Phases lists every phase in conversation order.
var Phases = []Phase{
	PhaseGreeting, PhaseDiscovery, PhaseAnalysis, PhaseQualification, PhaseConversion, PhaseFollowup,
}

type Persona string

const (
	PersonaUnknown        Persona = "unknown"
	PersonaFirstTimeBuyer Persona = "first_time_buyer"
	PersonaExperienced    Persona = "experienced"
	PersonaInvestor       Persona = "investor"
	PersonaComplexCase    Persona = "complex_case"
)

// ConversationState is the derived state of one session.
type ConversationState struct {
	Phase               Phase           `json:"phase"`
	Persona             Persona         `json:"persona"`
	Temperature         string          `json:"temperature,omitempty"`
	WidgetsShown        []string        `json:"widgetsShown"`
	DataCollectedFields []profile.Field `json:"dataCollectedFields"`
	LeadScore           int             `json:"leadScore"`
	LeadQualified       bool            `json:"leadQualified"`
	LeadCaptured        bool            `json:"leadCaptured"`
	LeadCapturedAt      *time.Time      `json:"leadCapturedAt,omitempty"`
	TurnCount           int             `json:"turnCount"`
}

// New returns the state of a session that has not started yet.
func New() *ConversationState {
	return &ConversationState{
		Phase:               PhaseGreeting,
		Persona:             PersonaUnknown,
		WidgetsShown:        []string{},
		DataCollectedFields: []profile.Field{},
	}
}

// Clone returns a deep copy.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.WidgetsShown = slices.Clone(s.WidgetsShown)
	out.DataCollectedFields = slices.Clone(s.DataCollectedFields)
	if s.LeadCapturedAt != nil {
		t := *s.LeadCapturedAt
		out.LeadCapturedAt = &t
	}
	return &out
}

// HasShown reports whether the named widget was shown in this session.
func (s *ConversationState) HasShown(tool string) bool {
	return slices.Contains(s.WidgetsShown, tool)
}

// MarkCaptured records that a lead was captured at now. The phase becomes
// followup on the next Recompute.
func (s *ConversationState) MarkCaptured(now time.Time) {
	if s.LeadCaptured {
		return
	}
	s.LeadCaptured = true
	t := now.UTC()
	s.LeadCapturedAt = &t
}

// Recompute rebuilds the collected fields, phase and persona from p.
// WidgetsShown, LeadCaptured and TurnCount are inputs and are left as set by
// the caller. Running it twice on the same input yields the same state.
func Recompute(s *ConversationState, p profile.Profile) error {
	if s == nil {
		return ErrNilState
	}
	collected := p.Collected()
	if collected == nil {
		collected = []profile.Field{}
	}
	s.DataCollectedFields = collected
	s.Phase = ClassifyPhase(s.Phase, NewFieldSet(collected...), s.LeadCaptured, s.TurnCount)
	s.Persona = ClassifyPersona(p)
	return nil
}
