package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/scoring"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/tools"
)

var fixedNow = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func baseInput() Input {
	st := state.New()
	st.TurnCount = 2
	return Input{
		Profile:     profile.Profile{},
		State:       st,
		Limits:      mortgage.DefaultLimits(),
		Assumptions: mortgage.DefaultAssumptions(),
		Fragments:   DefaultFragments(),
		Now:         fixedNow,
		Persona:     state.PersonaUnknown,
	}
}

func section(t *testing.T, doc Document, key SectionKey) string {
	t.Helper()
	text, ok := doc.Section(key)
	if !ok {
		t.Fatalf("section %s missing; have %v", key, doc.Keys())
	}
	return text
}

func TestCompileSectionOrder(t *testing.T) {
	in := baseInput()
	in.Fragments.KnowledgeBase = []string{"Fixace na 5 let je nejčastější."}
	in.Fragments.RateContext = "Průměrná sazba ČNB za září: 4,79 %"
	in.Profile = profile.Profile{profile.FieldAge: 30.0}
	in.Persona = state.PersonaFirstTimeBuyer

	doc := Compile(in)

	if diff := cmp.Diff(SectionOrder, doc.Keys()); diff != "" {
		t.Errorf("section order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileOmitsEmptySections(t *testing.T) {
	doc := Compile(baseInput())

	for _, key := range []SectionKey{SectionPersona, SectionScenario, SectionKnowledge} {
		if _, ok := doc.Section(key); ok {
			t.Errorf("section %s should be omitted", key)
		}
	}
	// the remaining keys keep their relative order
	pos := map[SectionKey]int{}
	for i, k := range SectionOrder {
		pos[k] = i
	}
	keys := doc.Keys()
	for i := 1; i < len(keys); i++ {
		if pos[keys[i-1]] >= pos[keys[i]] {
			t.Errorf("section %s rendered after %s", keys[i], keys[i-1])
		}
	}
}

func TestDocumentString(t *testing.T) {
	doc := Document{Sections: []Section{{SectionBaseIdentity, "A"}, {SectionPhase, "B"}}}
	if got := doc.String(); got != "A\n\nB" {
		t.Errorf("String() = %q", got)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	in := baseInput()
	in.Profile = profile.Profile{
		profile.FieldPrice:         5000000.0,
		profile.FieldEquity:        1000000.0,
		profile.FieldMonthlyIncome: 40000.0,
		profile.FieldEmail:         "a@b.cz",
	}
	in.State.WidgetsShown = []string{tools.ShowEligibility, tools.ShowPayment}
	in.Fragments.KnowledgeBase = []string{"a", "b"}

	first := Compile(in).String()
	for i := 0; i < 20; i++ {
		if got := Compile(in).String(); got != first {
			t.Fatalf("compile %d differs:\n%s\n---\n%s", i, first, got)
		}
	}
}

func TestCompileChecklist(t *testing.T) {
	in := baseInput()
	in.Profile = profile.Profile{profile.FieldPrice: 5000000.0, profile.FieldAge: 30.0}
	text := section(t, Compile(in), SectionChecklist)

	want := strings.Join([]string{
		"CHYBĚJÍCÍ ÚDAJE (zjišťuj postupně, vždy jen jeden):",
		"- Vysoká priorita: vlastní zdroje, čistý měsíční příjem",
		"- Střední priorita: účel úvěru, typ nemovitosti, typ příjmu",
		"- Nízká priorita: lokalita nebo adresa, velikost nemovitosti, příjem partnera, měsíční výdaje, splátky jiných úvěrů",
	}, "\n")
	if diff := cmp.Diff(want, text); diff != "" {
		t.Errorf("checklist mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileChecklistComplete(t *testing.T) {
	in := baseInput()
	in.Profile = profile.Profile{
		profile.FieldPrice:                5000000.0,
		profile.FieldEquity:               1000000.0,
		profile.FieldTotalMonthlyIncome:   90000.0,
		profile.FieldAge:                  35.0,
		profile.FieldPurpose:              "own_housing",
		profile.FieldPropertyType:         "byt",
		profile.FieldIncomeType:           "employee",
		profile.FieldPropertyCity:         "Brno",
		profile.FieldPropertySize:         68.0,
		profile.FieldMonthlyExpenses:      20000.0,
		profile.FieldExistingLoanPayments: 0.0,
	}
	text := section(t, Compile(in), SectionChecklist)
	if !strings.HasPrefix(text, "VŠECHNA KLÍČOVÁ DATA MÁME") {
		t.Errorf("checklist = %q", text)
	}
}

func TestContactPolicyLowSuppressesOffers(t *testing.T) {
	in := baseInput()
	in.Fragments.ContactIntensity = IntensityLow
	in.State.WidgetsShown = []string{tools.ShowEligibility, tools.ShowPayment}
	in.OfferLeadCapture = true

	text := section(t, Compile(in), SectionContactPolicy)
	if strings.Contains(text, "jednou zmínit") || strings.Contains(text, "Klient je připravený") {
		t.Errorf("low intensity must not push contact:\n%s", text)
	}
	if !strings.Contains(text, "sám nenabízej") {
		t.Errorf("low intensity policy missing:\n%s", text)
	}
}

func TestContactPolicyOneTimeMention(t *testing.T) {
	const mention = "Můžeš jednou zmínit"
	tests := []struct {
		name    string
		widgets []string
		profile profile.Profile
		want    bool
	}{
		{"two widgets", []string{tools.ShowEligibility, tools.ShowPayment}, profile.Profile{}, true},
		{"one widget", []string{tools.ShowPayment}, profile.Profile{}, false},
		{"already offered", []string{tools.ShowLeadCapture, tools.ShowPayment}, profile.Profile{}, false},
		{"specialists shown", []string{tools.ShowPayment, tools.ShowSpecialists}, profile.Profile{}, false},
		{"has contact", []string{tools.ShowEligibility, tools.ShowPayment}, profile.Profile{profile.FieldPhone: "777"}, false},
	}
	for _, intensity := range []Intensity{IntensityMedium, IntensityHigh} {
		for _, tt := range tests {
			t.Run(string(intensity)+"/"+tt.name, func(t *testing.T) {
				in := baseInput()
				in.Fragments.ContactIntensity = intensity
				in.State.WidgetsShown = tt.widgets
				in.Profile = tt.profile
				text := section(t, Compile(in), SectionContactPolicy)
				if got := strings.Contains(text, mention); got != tt.want {
					t.Errorf("mention = %v, want %v:\n%s", got, tt.want, text)
				}
			})
		}
	}
}

func TestContactPolicyOfferLeadCapture(t *testing.T) {
	in := baseInput()
	in.OfferLeadCapture = true
	text := section(t, Compile(in), SectionContactPolicy)
	if !strings.Contains(text, tools.ShowLeadCapture) || strings.Contains(text, "zopakovat") {
		t.Errorf("medium offer policy:\n%s", text)
	}

	in.Fragments.ContactIntensity = IntensityHigh
	text = section(t, Compile(in), SectionContactPolicy)
	if !strings.Contains(text, "zopakovat") {
		t.Errorf("high offer policy should allow one repeat:\n%s", text)
	}
}

func TestOperationalRulesListWidgets(t *testing.T) {
	in := baseInput()
	in.State.WidgetsShown = []string{tools.ShowEligibility, tools.ShowPayment}
	text := section(t, Compile(in), SectionRules)
	if !strings.Contains(text, "Už zobrazeno: show_eligibility, show_payment.") {
		t.Errorf("rules:\n%s", text)
	}

	in.State.WidgetsShown = nil
	if strings.Contains(section(t, Compile(in), SectionRules), "Už zobrazeno") {
		t.Error("no widgets shown, no repeat list expected")
	}
}

func TestNextAction(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Input)
		want  string
	}{
		{"greeting asks for price", func(in *Input) {}, "Zjisti: cena nemovitosti."},
		{"captured thanks", func(in *Input) { in.State.LeadCaptured = true }, "Poděkuj za kontakt"},
		{"offer", func(in *Input) { in.OfferLeadCapture = true }, tools.ShowLeadCapture},
		{"low intensity skips the offer", func(in *Input) {
			in.OfferLeadCapture = true
			in.Fragments.ContactIntensity = IntensityLow
		}, "Zjisti: cena nemovitosti."},
		{"qualification", func(in *Input) {
			in.Profile = profile.Profile{profile.FieldPrice: 1.0, profile.FieldEquity: 1.0, profile.FieldMonthlyIncome: 1.0}
			in.State.Phase = state.PhaseQualification
		}, tools.ShowStressTest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.setup(&in)
			text := section(t, Compile(in), SectionNextAction)
			if !strings.Contains(text, tt.want) {
				t.Errorf("next action = %q, want it to contain %q", text, tt.want)
			}
			if in.Fragments.ContactIntensity == IntensityLow && strings.Contains(text, tools.ShowLeadCapture) {
				t.Errorf("low intensity next action offers contact: %q", text)
			}
		})
	}
}

func TestScenarioSelection(t *testing.T) {
	tests := []struct {
		name    string
		p       profile.Profile
		persona state.Persona
		want    string
	}{
		{"refinance", profile.Profile{profile.FieldPurpose: "refinance"}, state.PersonaExperienced, "REFINANCOVÁNÍ"},
		{"investment", profile.Profile{profile.FieldRentalIncome: 12000.0}, state.PersonaInvestor, "INVESTIČNÍ"},
		{"complex", profile.Profile{profile.FieldIncomeType: "self_employed"}, state.PersonaComplexCase, "PODNIKÁNÍ"},
		{"young", profile.Profile{profile.FieldAge: 29.0}, state.PersonaFirstTimeBuyer, "mladší než 36 let"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.Profile = tt.p
			in.Persona = tt.persona
			if text := section(t, Compile(in), SectionScenario); !strings.Contains(text, tt.want) {
				t.Errorf("scenario = %q, want %q", text, tt.want)
			}
		})
	}

	in := baseInput()
	in.Profile = profile.Profile{profile.FieldAge: 36.0}
	in.Persona = state.PersonaFirstTimeBuyer
	if _, ok := Compile(in).Section(SectionScenario); ok {
		t.Error("36 year old gets standard limits, no young scenario")
	}
}

func TestLiveDataAndLimits(t *testing.T) {
	in := baseInput()
	in.Fragments.RateContext = "Sazby bank: 4,59 až 5,29 %."
	doc := Compile(in)

	live := section(t, doc, SectionLiveData)
	for _, want := range []string{"Dnes je 14. 10. 2026.", "4,89 %", "Sazby bank: 4,59 až 5,29 %."} {
		if !strings.Contains(live, want) {
			t.Errorf("live data missing %q:\n%s", want, live)
		}
	}
	limits := section(t, doc, SectionLimits)
	for _, want := range []string{"LTV nejvýše 80 % (žadatelé do 36 let 90 %)", "DSTI nejvýše 45 %", "DTI nejvýše 8,5 násobek"} {
		if !strings.Contains(limits, want) {
			t.Errorf("limits missing %q:\n%s", want, limits)
		}
	}
}

func TestProfileSummaryAndScore(t *testing.T) {
	in := baseInput()
	in.Profile = profile.Profile{
		profile.FieldPrice:       5000000.0,
		profile.FieldEquity:      1000000.0,
		profile.FieldPropertyLat: 50.1,
	}
	in.State.TurnCount = 3
	res, err := scoring.Evaluate(scoring.Input{Profile: in.Profile, State: in.State, Limits: in.Limits, Assumptions: in.Assumptions})
	if err != nil {
		t.Fatal(err)
	}
	in.Score = res
	doc := Compile(in)

	summary := section(t, doc, SectionProfile)
	want := "CO O KLIENTOVI VÍME:\n- Cena nemovitosti: 5 000 000 Kč\n- Vlastní zdroje: 1 000 000 Kč"
	if diff := cmp.Diff(want, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	score := section(t, doc, SectionScore)
	for _, want := range []string{"40/100, teplota warm, kvalifikovaný: ne", "LTV 80 % (limit 80 %)"} {
		if !strings.Contains(score, want) {
			t.Errorf("score missing %q:\n%s", want, score)
		}
	}
}

func TestCompileNilStateStillProducesPrompt(t *testing.T) {
	in := baseInput()
	in.State = nil
	in.Fragments = Fragments{}
	doc := Compile(in)
	if !strings.Contains(doc.String(), defaultBaseIdentity) {
		t.Error("missing fragments should fall back to the default identity")
	}
}
