// Package profile holds the client profile collected during a sales conversation.
package profile

// Field is the name of one profile fact. The string value is the JSON key
// used by the LLM tool schema.
type Field string

// Financial
const (
	FieldPrice                   Field = "price"
	FieldEquity                  Field = "equity"
	FieldMonthlyIncome           Field = "monthlyIncome"
	FieldPartnerIncome           Field = "partnerIncome"
	FieldTotalMonthlyIncome      Field = "totalMonthlyIncome"
	FieldMonthlyExpenses         Field = "monthlyExpenses"
	FieldExistingLoanPayments    Field = "existingLoanPayments"
	FieldRentalIncome            Field = "rentalIncome"
	FieldExistingMortgageBalance Field = "existingMortgageBalance"
	FieldExistingMortgageRate    Field = "existingMortgageRate"
	FieldLoanTermYears           Field = "loanTermYears"
)

// Personal
const (
	FieldAge        Field = "age"
	FieldIncomeType Field = "incomeType"
	FieldPurpose    Field = "purpose"
)

// Property
const (
	FieldPropertyType         Field = "propertyType"
	FieldPropertySize         Field = "propertySize"
	FieldPropertyAddress      Field = "propertyAddress"
	FieldPropertyCity         Field = "propertyCity"
	FieldPropertyPostalCode   Field = "propertyPostalCode"
	FieldPropertyLat          Field = "propertyLat"
	FieldPropertyLng          Field = "propertyLng"
	FieldPropertyConstruction Field = "propertyConstruction"
	FieldPropertyRating       Field = "propertyRating"
)

// Contact
const (
	FieldName  Field = "name"
	FieldEmail Field = "email"
	FieldPhone Field = "phone"
)

// Metadata maintained by the engine, never counted as collected.
const (
	FieldFirstSeenAt  Field = "firstSeenAt"
	FieldLastSeenAt   Field = "lastSeenAt"
	FieldMessageCount Field = "messageCount"
)

// Purpose values.
const (
	PurposeOwnHousing   = "own_housing"
	PurposeInvestment   = "investment"
	PurposeRefinance    = "refinance"
	PurposeConstruction = "construction"
)

// Income type values.
const (
	IncomeEmployee     = "employee"
	IncomeSelfEmployed = "self_employed"
	IncomeMixed        = "mixed"
	IncomeOther        = "other"
)

// Schema lists every known collectable field in display order.
var Schema = []Field{
	FieldPrice,
	FieldEquity,
	FieldMonthlyIncome,
	FieldPartnerIncome,
	FieldTotalMonthlyIncome,
	FieldMonthlyExpenses,
	FieldExistingLoanPayments,
	FieldRentalIncome,
	FieldExistingMortgageBalance,
	FieldExistingMortgageRate,
	FieldLoanTermYears,
	FieldAge,
	FieldIncomeType,
	FieldPurpose,
	FieldPropertyType,
	FieldPropertySize,
	FieldPropertyAddress,
	FieldPropertyCity,
	FieldPropertyPostalCode,
	FieldPropertyLat,
	FieldPropertyLng,
	FieldPropertyConstruction,
	FieldPropertyRating,
	FieldName,
	FieldEmail,
	FieldPhone,
}

var known = func() map[Field]bool {
	m := make(map[Field]bool, len(Schema))
	for _, f := range Schema {
		m[f] = true
	}
	return m
}()

// IsKnown reports whether f is part of the collectable schema.
func IsKnown(f Field) bool {
	return known[f]
}

// Label returns the Czech label used in prompt summaries.
func Label(f Field) string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

var labels = map[Field]string{
	FieldPrice:                   "Cena nemovitosti",
	FieldEquity:                  "Vlastní zdroje",
	FieldMonthlyIncome:           "Čistý měsíční příjem",
	FieldPartnerIncome:           "Příjem partnera",
	FieldTotalMonthlyIncome:      "Celkový příjem domácnosti",
	FieldMonthlyExpenses:         "Měsíční výdaje",
	FieldExistingLoanPayments:    "Splátky jiných úvěrů",
	FieldRentalIncome:            "Příjem z nájmu",
	FieldExistingMortgageBalance: "Zůstatek stávající hypotéky",
	FieldExistingMortgageRate:    "Sazba stávající hypotéky",
	FieldLoanTermYears:           "Doba splatnosti",
	FieldAge:                     "Věk",
	FieldIncomeType:              "Typ příjmu",
	FieldPurpose:                 "Účel úvěru",
	FieldPropertyType:            "Typ nemovitosti",
	FieldPropertySize:            "Velikost",
	FieldPropertyAddress:         "Adresa",
	FieldPropertyCity:            "Obec",
	FieldPropertyPostalCode:      "PSČ",
	FieldPropertyLat:             "Zeměpisná šířka",
	FieldPropertyLng:             "Zeměpisná délka",
	FieldPropertyConstruction:    "Konstrukce",
	FieldPropertyRating:          "Stav nemovitosti",
	FieldName:                    "Jméno",
	FieldEmail:                   "E-mail",
	FieldPhone:                   "Telefon",
}

// moneyFields are rendered as CZK amounts.
var moneyFields = map[Field]bool{
	FieldPrice:                   true,
	FieldEquity:                  true,
	FieldMonthlyIncome:           true,
	FieldPartnerIncome:           true,
	FieldTotalMonthlyIncome:      true,
	FieldMonthlyExpenses:         true,
	FieldExistingLoanPayments:    true,
	FieldRentalIncome:            true,
	FieldExistingMortgageBalance: true,
}

// IsMoney reports whether the field holds a CZK amount.
func IsMoney(f Field) bool {
	return moneyFields[f]
}
