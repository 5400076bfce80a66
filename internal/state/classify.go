package state

import "github.com/lukasbauer/hypoteka/internal/profile"

// FieldSet is a set of collected profile fields.
type FieldSet map[profile.Field]bool

func NewFieldSet(fields ...profile.Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = true
	}
	return s
}

func (s FieldSet) Has(f profile.Field) bool { return s[f] }

func (s FieldSet) hasIncome() bool {
	return s.Has(profile.FieldMonthlyIncome) || s.Has(profile.FieldTotalMonthlyIncome)
}

// ClassifyPhase picks the phase for the next prompt. Rules are checked in
// priority order and the first match wins. The phase is derived from the
// current collected set only; current does not hold it back or push it forward.
func ClassifyPhase(current Phase, collected FieldSet, leadCaptured bool, turnCount int) Phase {
	price := collected.Has(profile.FieldPrice)
	equity := collected.Has(profile.FieldEquity)
	income := collected.hasIncome()

	switch {
	case leadCaptured:
		return PhaseFollowup
	case price && equity && income:
		return PhaseQualification
	case price && equity:
		return PhaseAnalysis
	case price || income || equity:
		return PhaseDiscovery
	case turnCount <= 1:
		return PhaseGreeting
	default:
		return PhaseDiscovery
	}
}

// ClassifyPersona tags the client for prompt tone. It has no effect on
// scoring or phase.
func ClassifyPersona(p profile.Profile) Persona {
	purpose, _ := p.String(profile.FieldPurpose)
	incomeType, _ := p.String(profile.FieldIncomeType)

	if purpose == profile.PurposeInvestment || p.Has(profile.FieldRentalIncome) {
		return PersonaInvestor
	}
	if purpose == profile.PurposeRefinance ||
		p.HasAny(profile.FieldExistingMortgageBalance, profile.FieldExistingMortgageRate) {
		return PersonaExperienced
	}
	if incomeType == profile.IncomeSelfEmployed || incomeType == profile.IncomeMixed {
		return PersonaComplexCase
	}
	if age, ok := p.Float(profile.FieldAge); ok {
		if age <= 36 {
			return PersonaFirstTimeBuyer
		}
		if age > 40 {
			return PersonaExperienced
		}
	}
	price, okPrice := p.Float(profile.FieldPrice)
	equity, okEquity := p.Float(profile.FieldEquity)
	if okPrice && okEquity && price > 0 && equity/price < 0.15 {
		return PersonaFirstTimeBuyer
	}
	return PersonaUnknown
}
