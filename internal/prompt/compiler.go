// Package prompt compiles the system prompt for the next LLM turn from the
// session state and the tenant's text fragments.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/scoring"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/tools"
)

type SectionKey string

const (
	SectionBaseIdentity  SectionKey = "base_identity"
	SectionLiveData      SectionKey = "live_data"
	SectionLimits        SectionKey = "regulatory_limits"
	SectionPhase         SectionKey = "phase"
	SectionProfile       SectionKey = "profile"
	SectionPersona       SectionKey = "persona"
	SectionChecklist     SectionKey = "checklist"
	SectionScore         SectionKey = "score"
	SectionRules         SectionKey = "operational_rules"
	SectionScenario      SectionKey = "scenario"
	SectionNextAction    SectionKey = "next_action"
	SectionContactPolicy SectionKey = "contact_policy"
	SectionKnowledge     SectionKey = "knowledge_base"
	SectionTools         SectionKey = "tools"
	SectionFinalReminder SectionKey = "final_reminder"
)

// SectionOrder is the fixed order of sections in a compiled prompt.
var SectionOrder = []SectionKey{
	SectionBaseIdentity,
	SectionLiveData,
	SectionLimits,
	SectionPhase,
	SectionProfile,
	SectionPersona,
	SectionChecklist,
	SectionScore,
	SectionRules,
	SectionScenario,
	SectionNextAction,
	SectionContactPolicy,
	SectionKnowledge,
	SectionTools,
	SectionFinalReminder,
}

// Separator goes between sections in the rendered prompt.
const Separator = "\n\n"

type Section struct {
	Key  SectionKey `json:"key"`
	Text string     `json:"text"`
}

// Document is a compiled prompt. Sections with no content are left out.
type Document struct {
	Sections []Section `json:"sections"`
}

func (d Document) String() string {
	parts := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		parts[i] = s.Text
	}
	return strings.Join(parts, Separator)
}

// Section returns the text of the section with key.
func (d Document) Section(key SectionKey) (string, bool) {
	for _, s := range d.Sections {
		if s.Key == key {
			return s.Text, true
		}
	}
	return "", false
}

func (d Document) Keys() []SectionKey {
	keys := make([]SectionKey, len(d.Sections))
	for i, s := range d.Sections {
		keys[i] = s.Key
	}
	return keys
}

// Input is everything a prompt is compiled from. Now is the only clock the
// compiler reads.
type Input struct {
	Profile          profile.Profile
	State            *state.ConversationState
	Score            scoring.Result
	Persona          state.Persona
	Limits           mortgage.Limits
	Assumptions      mortgage.Assumptions
	Fragments        Fragments
	Now              time.Time
	OfferLeadCapture bool
}

type compiler struct {
	in        Input
	st        *state.ConversationState
	frag      Fragments
	limits    mortgage.Limits
	checklist Checklist
}

// Compile builds the prompt document. It always returns a document; a
// section that cannot be built is omitted.
func Compile(in Input) Document {
	st := in.State
	if st == nil {
		st = state.New()
	}
	c := compiler{
		in:        in,
		st:        st,
		frag:      in.Fragments.WithDefaults(),
		limits:    in.Limits.WithDefaults(),
		checklist: BuildChecklist(in.Profile),
	}

	builders := map[SectionKey]func() string{
		SectionBaseIdentity:  c.baseIdentity,
		SectionLiveData:      c.liveData,
		SectionLimits:        c.regulatoryLimits,
		SectionPhase:         c.phase,
		SectionProfile:       c.profileSummary,
		SectionPersona:       c.personaNote,
		SectionChecklist:     c.missingFields,
		SectionScore:         c.score,
		SectionRules:         c.operationalRules,
		SectionScenario:      c.scenario,
		SectionNextAction:    c.nextAction,
		SectionContactPolicy: c.contactPolicy,
		SectionKnowledge:     c.knowledge,
		SectionTools:         c.toolUsage,
		SectionFinalReminder: c.finalReminder,
	}

	var doc Document
	for _, key := range SectionOrder {
		text := strings.TrimSpace(builders[key]())
		if text == "" {
			continue
		}
		doc.Sections = append(doc.Sections, Section{Key: key, Text: text})
	}
	return doc
}

func (c compiler) baseIdentity() string {
	return c.frag.BaseIdentity
}

func (c compiler) liveData() string {
	var lines []string
	if !c.in.Now.IsZero() {
		lines = append(lines, "- Dnes je "+c.in.Now.Format("2. 1. 2006")+".")
	}
	rate := c.in.Assumptions.RatePct
	if rate <= 0 {
		rate = mortgage.DefaultRatePct
	}
	lines = append(lines, "- Orientační sazba pro výpočty: "+decimal(rate)+" %.")
	if rc := strings.TrimSpace(c.frag.RateContext); rc != "" {
		lines = append(lines, rc)
	}
	return "AKTUÁLNÍ DATA:\n" + strings.Join(lines, "\n")
}

func (c compiler) regulatoryLimits() string {
	l := c.limits
	return fmt.Sprintf(`LIMITY ČNB:
- LTV nejvýše %s (žadatelé do %d let %s)
- DSTI nejvýše %s (žadatelé do %d let %s)
- DTI nejvýše %s násobek ročního čistého příjmu (žadatelé do %d let %s)`,
		profile.FormatPercent(l.MaxLTV), l.YoungAgeBelow, profile.FormatPercent(l.MaxLTVYoung),
		profile.FormatPercent(l.MaxDSTI), l.YoungAgeBelow, profile.FormatPercent(l.MaxDSTIYoung),
		decimal(l.MaxDTI), l.YoungAgeBelow, decimal(l.MaxDTIYoung))
}

func (c compiler) phase() string {
	text := c.frag.Phases[c.st.Phase]
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return fmt.Sprintf("FÁZE ROZHOVORU: %s\n%s", c.st.Phase, text)
}

func (c compiler) profileSummary() string {
	var lines []string
	for _, f := range profile.Schema {
		if f == profile.FieldPropertyLat || f == profile.FieldPropertyLng {
			continue
		}
		v, ok := c.in.Profile.Display(f)
		if !ok || v == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", profile.Label(f), v))
	}
	if len(lines) == 0 {
		return "CO O KLIENTOVI VÍME:\n- zatím nic"
	}
	return "CO O KLIENTOVI VÍME:\n" + strings.Join(lines, "\n")
}

func (c compiler) personaNote() string {
	note, ok := personaNotes[c.in.Persona]
	if !ok {
		return ""
	}
	return "TYP KLIENTA:\n" + note
}

func (c compiler) missingFields() string {
	if c.checklist.Complete() {
		return "VŠECHNA KLÍČOVÁ DATA MÁME:\n- Další údaje nezjišťuj, soustřeď se na výpočty a doporučení."
	}
	lines := []string{"CHYBĚJÍCÍ ÚDAJE (zjišťuj postupně, vždy jen jeden):"}
	if len(c.checklist.High) > 0 {
		lines = append(lines, "- Vysoká priorita: "+strings.Join(c.checklist.High, ", "))
	}
	if len(c.checklist.Medium) > 0 {
		lines = append(lines, "- Střední priorita: "+strings.Join(c.checklist.Medium, ", "))
	}
	if len(c.checklist.Low) > 0 {
		lines = append(lines, "- Nízká priorita: "+strings.Join(c.checklist.Low, ", "))
	}
	return strings.Join(lines, "\n")
}

func (c compiler) score() string {
	s := c.in.Score
	qualified := "ne"
	if s.Qualified {
		qualified = "ano"
	}
	lines := []string{
		"SKÓRE LEADU (interní, klientovi ho nesděluj):",
		fmt.Sprintf("- %d/100, teplota %s, kvalifikovaný: %s", s.Score, s.Temperature, qualified),
	}
	if m := s.Metrics; m.LTV != nil {
		lines = append(lines, fmt.Sprintf("- LTV %s (limit %s)", profile.FormatPercent(*m.LTV), profile.FormatPercent(m.Limits.LTV)))
	}
	if m := s.Metrics; m.DSTI != nil {
		lines = append(lines, fmt.Sprintf("- DSTI %s (limit %s), splátka %s",
			profile.FormatPercent(*m.DSTI), profile.FormatPercent(m.Limits.DSTI), profile.FormatCZK(m.MonthlyPayment)))
	}
	if len(s.MissingForQualification) > 0 {
		lines = append(lines, "- Pro kvalifikaci chybí: "+strings.Join(s.MissingForQualification, ", "))
	}
	return strings.Join(lines, "\n")
}

func (c compiler) operationalRules() string {
	text := "PRAVIDLA:\n" + defaultOperationalRules
	if len(c.st.WidgetsShown) > 0 {
		text += "\n- Už zobrazeno: " + strings.Join(c.st.WidgetsShown, ", ") +
			". Tyto nástroje znovu nevolej, pokud se nezměnily vstupy."
	}
	return text
}

func (c compiler) scenario() string {
	p := c.in.Profile
	purpose, _ := p.String(profile.FieldPurpose)
	switch {
	case purpose == profile.PurposeRefinance:
		return scenarioRefinance
	case purpose == profile.PurposeInvestment || c.in.Persona == state.PersonaInvestor:
		return scenarioInvestment
	case c.in.Persona == state.PersonaComplexCase:
		return scenarioComplexIncome
	}
	if age, ok := p.Float(profile.FieldAge); ok && c.in.Persona == state.PersonaFirstTimeBuyer {
		applied := c.limits.ForAge(age, true)
		if applied.Young {
			return fmt.Sprintf(scenarioYoungBuyer, c.limits.YoungAgeBelow,
				profile.FormatPercent(applied.LTV), profile.FormatPercent(applied.DSTI))
		}
	}
	return ""
}

func (c compiler) nextAction() string {
	var action string
	switch {
	case c.st.LeadCaptured:
		action = "Poděkuj za kontakt, řekni, že se specialista brzy ozve, a odpovídej na doplňující dotazy."
	case c.in.OfferLeadCapture && c.frag.ContactIntensity != IntensityLow:
		action = "Nabídni předání specialistovi a zavolej " + tools.ShowLeadCapture + "."
	case len(c.checklist.High) > 0:
		action = "Zjisti: " + c.checklist.High[0] + "."
	default:
		action = phaseAction[c.st.Phase]
	}
	if action == "" {
		return ""
	}
	return "DOPORUČENÝ DALŠÍ KROK:\n- " + action
}

var phaseAction = map[state.Phase]string{
	state.PhaseGreeting:      "Přivítej klienta a zeptej se, jakou nemovitost plánuje.",
	state.PhaseDiscovery:     "Ukaž orientační splátku přes " + tools.ShowPayment + ".",
	state.PhaseAnalysis:      "Ukaž posouzení bonity přes " + tools.ShowEligibility + ".",
	state.PhaseQualification: "Ukaž zátěžový test sazeb přes " + tools.ShowStressTest + " nebo srovnání nájmu a koupě přes " + tools.ShowRentVsBuy + ".",
	state.PhaseConversion:    "Shrň výpočty a nabídni ověření u specialisty.",
	state.PhaseFollowup:      "Odpovídej na doplňující dotazy.",
}

func (c compiler) contactPolicy() string {
	header := "KONTAKT NA SPECIALISTU:"
	if c.frag.ContactIntensity == IntensityLow {
		return header + "\n- Kontakt ani specialistu sám nenabízej. Jen když se klient sám zeptá, zavolej " + tools.ShowLeadCapture + "."
	}

	hasContact := c.in.Profile.HasContact()
	offered := c.st.HasShown(tools.ShowLeadCapture) || c.st.HasShown(tools.ShowSpecialists)

	var lines []string
	if c.st.LeadCaptured || hasContact {
		lines = append(lines, "- Kontakt už máme, znovu o něj nežádej.")
	}
	if !offered && !hasContact && len(c.st.WidgetsShown) >= 2 {
		lines = append(lines, "- Můžeš jednou zmínit, že specialista umí podmínky ověřit u více bank. Zmiň to jen jednou.")
	}
	if c.in.OfferLeadCapture {
		lines = append(lines, "- Klient je připravený: nabídni předání specialistovi a zavolej "+tools.ShowLeadCapture+".")
		if c.frag.ContactIntensity == IntensityHigh {
			lines = append(lines, "- Pokud odmítne, můžeš nabídku později jednou zopakovat.")
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "- Kontakt zatím nenabízej, nejdřív klientovi ukaž konkrétní výpočty.")
	}
	return header + "\n" + strings.Join(lines, "\n")
}

func (c compiler) knowledge() string {
	var parts []string
	for _, kb := range c.frag.KnowledgeBase {
		if kb = strings.TrimSpace(kb); kb != "" {
			parts = append(parts, kb)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "ZNALOSTNÍ BÁZE:\n" + strings.Join(parts, "\n---\n")
}

func (c compiler) toolUsage() string {
	lines := []string{"NÁSTROJE:"}
	for _, t := range tools.Registered {
		lines = append(lines, fmt.Sprintf("- %s: %s", t.Name, t.Description))
	}
	return strings.Join(lines, "\n")
}

func (c compiler) finalReminder() string {
	return c.frag.FinalReminder
}

// decimal renders 8.5 as "8,5".
func decimal(n float64) string {
	return strings.Replace(strconv.FormatFloat(n, 'f', -1, 64), ".", ",", 1)
}
