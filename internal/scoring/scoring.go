// Package scoring turns a profile and conversation state into a lead score.
package scoring

import (
	"fmt"

	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/state"
)

type Temperature string

const (
	TempCold      Temperature = "cold"
	TempWarm      Temperature = "warm"
	TempHot       Temperature = "hot"
	TempQualified Temperature = "qualified"
)

// QualifiedScore is the score from which a lead counts as qualified. The
// qualified temperature band starts higher, at 81.
const QualifiedScore = 61

// Input is everything a score is computed from.
type Input struct {
	Profile     profile.Profile
	State       *state.ConversationState
	Limits      mortgage.Limits
	Assumptions mortgage.Assumptions
}

// Metrics are the affordability figures the quality rules were checked on.
// A ratio is nil when the profile lacks the data for it.
type Metrics struct {
	Loan           float64          `json:"loan,omitempty"`
	MonthlyPayment float64          `json:"monthly_payment,omitempty"`
	LTV            *float64         `json:"ltv,omitempty"`
	DSTI           *float64         `json:"dsti,omitempty"`
	DTI            *float64         `json:"dti,omitempty"`
	Limits         mortgage.Applied `json:"limits"`
}

// Result is a computed lead score.
type Result struct {
	Score                   int         `json:"score"`
	Temperature             Temperature `json:"temperature"`
	Qualified               bool        `json:"qualified"`
	Reasons                 []string    `json:"reasons"`
	MissingForQualification []string    `json:"missing_for_qualification"`
	Metrics                 Metrics     `json:"metrics"`
}

// Evaluate runs the rule table. Zero limits or assumptions fall back to the
// defaults, so a score is always produced for a well-formed state.
func Evaluate(in Input) (Result, error) {
	if in.State == nil {
		return Result{}, state.ErrNilState
	}
	f := newFacts(in)

	res := Result{Reasons: []string{}, MissingForQualification: []string{}, Metrics: f.metrics}
	score := 0
	for _, r := range Rules {
		if r.Check(f) {
			score += r.Points
			res.Reasons = append(res.Reasons, fmt.Sprintf("%s (+%d)", r.Reason, r.Points))
			continue
		}
		if r.Missing != "" {
			res.MissingForQualification = append(res.MissingForQualification, r.Missing)
		}
	}

	res.Score = clamp(score, 0, 100)
	res.Temperature = TemperatureFor(res.Score)
	res.Qualified = res.Score >= QualifiedScore
	return res, nil
}

// TemperatureFor buckets a score.
func TemperatureFor(score int) Temperature {
	switch {
	case score >= 81:
		return TempQualified
	case score >= 61:
		return TempHot
	case score >= 31:
		return TempWarm
	default:
		return TempCold
	}
}

// ShouldOfferLeadCapture reports whether the prompt should push the contact
// form this turn. A nil state returns state.ErrNilState.
func ShouldOfferLeadCapture(res Result, st *state.ConversationState) (bool, error) {
	if st == nil {
		return false, state.ErrNilState
	}
	if st.TurnCount < 4 || st.LeadCaptured {
		return false, nil
	}
	switch res.Temperature {
	case TempQualified:
		return true, nil
	case TempHot:
		return st.TurnCount >= 6, nil
	default:
		return false, nil
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
