// Package engine runs one conversation turn: replay the transcript, update
// the profile and state, score the lead and compile the next prompt.
package engine

import (
	"sort"
	"time"

	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/leadgate"
	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/scoring"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/transcript"
)

// TurnInput is everything one turn is computed from. The engine reads no
// clock and does no I/O.
type TurnInput struct {
	SessionID    string
	TenantID     string
	Messages     []transcript.Message
	PriorProfile profile.Profile
	PriorState   *state.ConversationState
	Limits       mortgage.Limits
	Assumptions  mortgage.Assumptions
	Fragments    prompt.Fragments
	Now          time.Time
}

// TurnResult is the new session state plus the prompt for the next LLM call.
// Lead is set only on the turn where contact info first appeared; the caller
// submits it after the turn is saved.
type TurnResult struct {
	Profile          profile.Profile          `json:"profile"`
	State            *state.ConversationState `json:"state"`
	Score            scoring.Result           `json:"score"`
	Prompt           prompt.Document          `json:"prompt"`
	OfferLeadCapture bool                     `json:"offer_lead_capture"`
	Lead             *crm.Lead                `json:"lead,omitempty"`
	PreviousPhase    state.Phase              `json:"previous_phase"`
	PreviousPersona  state.Persona            `json:"previous_persona"`
	PreviousTemp     scoring.Temperature      `json:"previous_temperature,omitempty"`
}

// Turn runs one turn. The ordering is fixed: the contact snapshot is taken
// from the prior profile before anything from this transcript is merged.
func Turn(in TurnInput) (TurnResult, error) {
	prior := in.PriorProfile.Clone()
	before := leadgate.Take(prior)

	reduced := transcript.Reduce(in.Messages)
	p := profile.Overlay(prior, reduced.Profile)
	p = profile.Touch(p, in.Now, len(in.Messages))

	st := in.PriorState.Clone()
	if st == nil {
		st = state.New()
	}
	previous, previousPersona, previousTemp := st.Phase, st.Persona, scoring.Temperature(st.Temperature)
	st.TurnCount = transcript.TurnCount(in.Messages)
	st.WidgetsShown = union(st.WidgetsShown, reduced.Widgets)

	fired := leadgate.Detect(before, p, st.LeadCaptured)
	if fired {
		st.MarkCaptured(in.Now)
	}

	if err := state.Recompute(st, p); err != nil {
		return TurnResult{}, err
	}

	score, err := scoring.Evaluate(scoring.Input{
		Profile:     p,
		State:       st,
		Limits:      in.Limits,
		Assumptions: in.Assumptions,
	})
	if err != nil {
		return TurnResult{}, err
	}
	st.LeadScore = score.Score
	st.LeadQualified = score.Qualified
	st.Temperature = string(score.Temperature)

	offer, err := scoring.ShouldOfferLeadCapture(score, st)
	if err != nil {
		return TurnResult{}, err
	}

	doc := prompt.Compile(prompt.Input{
		Profile:          p,
		State:            st,
		Score:            score,
		Persona:          st.Persona,
		Limits:           in.Limits,
		Assumptions:      in.Assumptions,
		Fragments:        in.Fragments,
		Now:              in.Now,
		OfferLeadCapture: offer,
	})

	res := TurnResult{
		Profile:          p,
		State:            st,
		Score:            score,
		Prompt:           doc,
		OfferLeadCapture: offer,
		PreviousPhase:    previous,
		PreviousPersona:  previousPersona,
		PreviousTemp:     previousTemp,
	}
	if fired {
		lead := crm.NewLead(in.SessionID, in.TenantID, p, in.Now)
		lead.Score = score.Score
		lead.Temperature = string(score.Temperature)
		lead.Phase = string(st.Phase)
		lead.Persona = string(st.Persona)
		lead.Trigger = leadgate.Trigger(before, p)
		res.Lead = &lead
	}
	return res, nil
}

// union merges two tool name sets into a sorted slice.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}
