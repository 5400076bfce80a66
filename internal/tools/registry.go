// Package tools is the registry of LLM tools the sales agent may call.
package tools

import "github.com/lukasbauer/hypoteka/internal/profile"

// Kind classifies what a completed tool call means for the session.
type Kind int

const (
	// KindUnknown is any tool name not in the registry. It is recorded as
	// shown but captures nothing.
	KindUnknown Kind = iota
	// KindProfileUpdate merges its whole input into the profile.
	KindProfileUpdate
	// KindCalculation displays a calculation; profile-shaped inputs are
	// captured incidentally.
	KindCalculation
	// KindLeadCapture displays the contact form.
	KindLeadCapture
	// KindSpecialists displays the list of available specialists.
	KindSpecialists
	// KindBookkeeping is internal and has no profile effect.
	KindBookkeeping
)

func (k Kind) String() string {
	switch k {
	case KindProfileUpdate:
		return "profile_update"
	case KindCalculation:
		return "calculation"
	case KindLeadCapture:
		return "lead_capture"
	case KindSpecialists:
		return "specialists"
	case KindBookkeeping:
		return "bookkeeping"
	default:
		return "unknown"
	}
}

// Tool names.
const (
	UpdateProfile         = "update_profile"
	LogInsight            = "log_insight"
	ShowPayment           = "show_payment"
	ShowEligibility       = "show_eligibility"
	ShowAffordability     = "show_affordability"
	ShowRentVsBuy         = "show_rent_vs_buy"
	ShowInvestment        = "show_investment"
	ShowRefinance         = "show_refinance"
	ShowAmortization      = "show_amortization"
	ShowStressTest        = "show_stress_test"
	ShowPropertyValuation = "show_property_valuation"
	ShowLeadCapture       = "show_lead_capture"
	ShowSpecialists       = "show_specialists"
)

// Tool describes one registered tool.
type Tool struct {
	Name string
	Kind Kind
	// Internal tools never appear in the widgets-shown set.
	Internal bool
	// Captures lists the profile fields taken from the input of a
	// non-profile-update tool.
	Captures    []profile.Field
	Description string
}

// CapturesField reports whether f is part of the tool's incidental capture.
func (t Tool) CapturesField(f profile.Field) bool {
	for _, c := range t.Captures {
		if c == f {
			return true
		}
	}
	return false
}

var financing = []profile.Field{
	profile.FieldPrice,
	profile.FieldEquity,
	profile.FieldMonthlyIncome,
	profile.FieldPartnerIncome,
	profile.FieldTotalMonthlyIncome,
	profile.FieldLoanTermYears,
	profile.FieldAge,
}

// Registered lists every known tool in the order it is described to the model.
var Registered = []Tool{
	{
		Name:        UpdateProfile,
		Kind:        KindProfileUpdate,
		Internal:    true,
		Description: "ulož každý nový údaj o klientovi (cena, vlastní zdroje, příjmy, věk, nemovitost, kontakt)",
	},
	{
		Name:        ShowPayment,
		Kind:        KindCalculation,
		Captures:    financing,
		Description: "zobraz výpočet měsíční splátky",
	},
	{
		Name: ShowEligibility,
		Kind: KindCalculation,
		Captures: append(append([]profile.Field{}, financing...),
			profile.FieldMonthlyExpenses, profile.FieldExistingLoanPayments, profile.FieldIncomeType),
		Description: "zobraz posouzení bonity podle limitů ČNB (LTV, DSTI, DTI)",
	},
	{
		Name:        ShowAffordability,
		Kind:        KindCalculation,
		Captures:    []profile.Field{profile.FieldEquity, profile.FieldMonthlyIncome, profile.FieldPartnerIncome, profile.FieldTotalMonthlyIncome, profile.FieldAge},
		Description: "zobraz, na jak drahou nemovitost klient dosáhne",
	},
	{
		Name:        ShowRentVsBuy,
		Kind:        KindCalculation,
		Captures:    []profile.Field{profile.FieldPrice, profile.FieldEquity, profile.FieldPropertyCity},
		Description: "zobraz srovnání nájmu a koupě",
	},
	{
		Name:        ShowInvestment,
		Kind:        KindCalculation,
		Captures:    []profile.Field{profile.FieldPrice, profile.FieldEquity, profile.FieldRentalIncome, profile.FieldPurpose},
		Description: "zobraz výnosnost investiční nemovitosti",
	},
	{
		Name:        ShowRefinance,
		Kind:        KindCalculation,
		Captures:    []profile.Field{profile.FieldExistingMortgageBalance, profile.FieldExistingMortgageRate, profile.FieldLoanTermYears, profile.FieldPurpose},
		Description: "zobraz úsporu z refinancování",
	},
	{
		Name:        ShowAmortization,
		Kind:        KindCalculation,
		Captures:    []profile.Field{profile.FieldPrice, profile.FieldEquity, profile.FieldLoanTermYears},
		Description: "zobraz splátkový kalendář",
	},
	{
		Name:        ShowStressTest,
		Kind:        KindCalculation,
		Captures:    financing,
		Description: "zobraz dopad růstu sazeb na splátku",
	},
	{
		Name: ShowPropertyValuation,
		Kind: KindCalculation,
		Captures: []profile.Field{
			profile.FieldPropertyType, profile.FieldPropertySize, profile.FieldPropertyAddress,
			profile.FieldPropertyCity, profile.FieldPropertyConstruction, profile.FieldPropertyRating,
		},
		Description: "zobraz odhad tržní ceny nemovitosti",
	},
	{
		Name:        ShowLeadCapture,
		Kind:        KindLeadCapture,
		Captures:    []profile.Field{profile.FieldName, profile.FieldEmail, profile.FieldPhone},
		Description: "zobraz formulář pro předání kontaktu specialistovi",
	},
	{
		Name:        ShowSpecialists,
		Kind:        KindSpecialists,
		Description: "zobraz nabídku specialistů",
	},
	{
		Name:        LogInsight,
		Kind:        KindBookkeeping,
		Internal:    true,
		Description: "interní poznámka pro poradce, klient ji nevidí",
	},
}

var byName = func() map[string]Tool {
	m := make(map[string]Tool, len(Registered))
	for _, t := range Registered {
		m[t.Name] = t
	}
	return m
}()

// Lookup resolves a tool name. Unknown names resolve to KindUnknown.
func Lookup(name string) Tool {
	if t, ok := byName[name]; ok {
		return t
	}
	return Tool{Name: name, Kind: KindUnknown}
}

// IsOfferTool reports whether showing the tool counts as having offered
// contact with a specialist.
func IsOfferTool(name string) bool {
	k := Lookup(name).Kind
	return k == KindLeadCapture || k == KindSpecialists
}
