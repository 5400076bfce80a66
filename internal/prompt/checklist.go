package prompt

import "github.com/lukasbauer/hypoteka/internal/profile"

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

type checklistItem struct {
	tier   Tier
	label  string
	fields []profile.Field
}

// checklistItems is the fixed list the checklist is computed from. An item
// is satisfied when any of its fields is present.
var checklistItems = []checklistItem{
	{TierHigh, "cena nemovitosti", []profile.Field{profile.FieldPrice}},
	{TierHigh, "vlastní zdroje", []profile.Field{profile.FieldEquity}},
	{TierHigh, "čistý měsíční příjem", []profile.Field{profile.FieldMonthlyIncome, profile.FieldTotalMonthlyIncome}},

	{TierMedium, "věk", []profile.Field{profile.FieldAge}},
	{TierMedium, "účel úvěru", []profile.Field{profile.FieldPurpose}},
	{TierMedium, "typ nemovitosti", []profile.Field{profile.FieldPropertyType}},
	{TierMedium, "typ příjmu", []profile.Field{profile.FieldIncomeType}},

	{TierLow, "lokalita nebo adresa", []profile.Field{profile.FieldPropertyAddress, profile.FieldPropertyCity}},
	{TierLow, "velikost nemovitosti", []profile.Field{profile.FieldPropertySize}},
	{TierLow, "příjem partnera", []profile.Field{profile.FieldPartnerIncome, profile.FieldTotalMonthlyIncome}},
	{TierLow, "měsíční výdaje", []profile.Field{profile.FieldMonthlyExpenses}},
	{TierLow, "splátky jiných úvěrů", []profile.Field{profile.FieldExistingLoanPayments}},
}

// Checklist lists the missing items per tier, in checklist order.
type Checklist struct {
	High   []string
	Medium []string
	Low    []string
}

func BuildChecklist(p profile.Profile) Checklist {
	var c Checklist
	for _, item := range checklistItems {
		if p.HasAny(item.fields...) {
			continue
		}
		switch item.tier {
		case TierHigh:
			c.High = append(c.High, item.label)
		case TierMedium:
			c.Medium = append(c.Medium, item.label)
		case TierLow:
			c.Low = append(c.Low, item.label)
		}
	}
	return c
}

// Complete reports whether nothing is missing.
func (c Checklist) Complete() bool {
	return len(c.High) == 0 && len(c.Medium) == 0 && len(c.Low) == 0
}
