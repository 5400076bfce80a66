package scoring

import (
	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
)

type Group string

const (
	GroupData       Group = "data"
	GroupEngagement Group = "engagement"
	GroupQuality    Group = "quality"
)

// Rule is one independent boolean check. Missing is the Czech label listed
// when the rule fails; rules without one are not needed for qualification.
type Rule struct {
	ID      string
	Group   Group
	Points  int
	Reason  string
	Missing string
	Check   func(facts) bool
}

// Rules is the fixed scoring table. Data is worth 40 points, engagement 25
// and quality 35.
var Rules = []Rule{
	{"has_price", GroupData, 10, "známe cenu nemovitosti", "cena nemovitosti",
		func(f facts) bool { return f.p.Has(profile.FieldPrice) }},
	{"has_equity", GroupData, 10, "známe vlastní zdroje", "vlastní zdroje",
		func(f facts) bool { return f.p.Has(profile.FieldEquity) }},
	{"has_income", GroupData, 10, "známe příjem", "příjem",
		func(f facts) bool { return f.p.HasAny(profile.FieldMonthlyIncome, profile.FieldTotalMonthlyIncome) }},
	{"has_property", GroupData, 5, "známe nemovitost", "typ nebo adresa nemovitosti",
		func(f facts) bool { return f.p.HasAny(profile.FieldPropertyType, profile.FieldPropertyAddress) }},
	{"has_age", GroupData, 5, "známe věk", "věk",
		func(f facts) bool { return f.p.Has(profile.FieldAge) }},

	{"turns_3", GroupEngagement, 5, "alespoň 3 zprávy", "",
		func(f facts) bool { return f.turns >= 3 }},
	{"turns_6", GroupEngagement, 5, "alespoň 6 zpráv", "",
		func(f facts) bool { return f.turns >= 6 }},
	{"widgets_1", GroupEngagement, 5, "viděl výpočet", "",
		func(f facts) bool { return f.widgets >= 1 }},
	{"widgets_2", GroupEngagement, 5, "viděl 2 výpočty", "",
		func(f facts) bool { return f.widgets >= 2 }},
	{"widgets_4", GroupEngagement, 5, "viděl 4 výpočty", "",
		func(f facts) bool { return f.widgets >= 4 }},

	{"ltv_ok", GroupQuality, 10, "LTV v limitu ČNB", "LTV v limitu",
		func(f facts) bool { return f.metrics.LTV != nil && *f.metrics.LTV <= f.metrics.Limits.LTV }},
	{"dsti_ok", GroupQuality, 10, "DSTI v limitu ČNB", "DSTI v limitu",
		func(f facts) bool { return f.metrics.DSTI != nil && *f.metrics.DSTI <= f.metrics.Limits.DSTI }},
	{"price_sane", GroupQuality, 5, "realistická cena", "",
		func(f facts) bool {
			return f.hasPrice && f.price >= mortgage.MinSanePrice && f.price <= mortgage.MaxSanePrice
		}},
	{"has_contact", GroupQuality, 10, "nechal kontakt", "kontakt",
		func(f facts) bool { return f.p.HasContact() }},
}

// facts are the values the rules read, computed once per evaluation.
type facts struct {
	p        profile.Profile
	turns    int
	widgets  int
	price    float64
	hasPrice bool
	metrics  Metrics
}

func newFacts(in Input) facts {
	limits := in.Limits.WithDefaults()
	assume := in.Assumptions
	if assume.RatePct <= 0 {
		assume.RatePct = mortgage.DefaultRatePct
	}
	if assume.TermYears <= 0 {
		assume.TermYears = mortgage.DefaultTermYears
	}

	p := in.Profile
	f := facts{
		p:       p,
		turns:   in.State.TurnCount,
		widgets: len(in.State.WidgetsShown),
	}
	f.price, f.hasPrice = p.Float(profile.FieldPrice)
	equity, hasEquity := p.Float(profile.FieldEquity)
	age, hasAge := p.Float(profile.FieldAge)
	f.metrics.Limits = limits.ForAge(age, hasAge)

	if !f.hasPrice || !hasEquity {
		return f
	}
	if ltv, ok := mortgage.LTV(f.price, equity); ok {
		f.metrics.LTV = &ltv
	}
	loan := f.price - equity
	if loan <= 0 {
		return f
	}
	term := assume.TermYears
	if years, ok := p.Int(profile.FieldLoanTermYears); ok && years > 0 {
		term = years
	}
	f.metrics.Loan = loan
	f.metrics.MonthlyPayment = mortgage.MonthlyPayment(loan, assume.RatePct, term)

	income, ok := p.TotalIncome()
	if !ok {
		return f
	}
	other, _ := p.Float(profile.FieldExistingLoanPayments)
	if dsti, ok := mortgage.DSTI(f.metrics.MonthlyPayment, other, income); ok {
		f.metrics.DSTI = &dsti
	}
	existing, _ := p.Float(profile.FieldExistingMortgageBalance)
	if dti, ok := mortgage.DTI(loan+existing, income); ok {
		f.metrics.DTI = &dti
	}
	return f
}
