package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/tools"
	"github.com/lukasbauer/hypoteka/internal/transcript"
)

var turnNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func userMsg(text string) transcript.Message {
	return transcript.Message{Role: transcript.RoleUser, Text: text}
}

func toolMsg(name string, input map[string]any) transcript.Message {
	return transcript.Message{
		Role:  transcript.RoleAssistant,
		Parts: []transcript.ToolEvent{{ToolName: name, State: transcript.StateComplete, Input: input}},
	}
}

func runTurn(t *testing.T, prior profile.Profile, st *state.ConversationState, msgs []transcript.Message) TurnResult {
	t.Helper()
	res, err := Turn(TurnInput{
		SessionID:    "s1",
		TenantID:     "t1",
		Messages:     msgs,
		PriorProfile: prior,
		PriorState:   st,
		Fragments:    prompt.DefaultFragments(),
		Now:          turnNow,
	})
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	return res
}

func TestTurnFiresLeadOnlyOnTheTurnContactAppears(t *testing.T) {
	turnN := []transcript.Message{
		userMsg("Dobrý den, chci hypotéku"),
		toolMsg(tools.UpdateProfile, map[string]any{"price": 4000000.0, "equity": 800000.0}),
	}
	r1 := runTurn(t, nil, nil, turnN)
	if r1.Lead != nil {
		t.Fatalf("turn N fired a lead without contact")
	}

	turnN1 := append(append([]transcript.Message{}, turnN...),
		userMsg("Můj email je jan@example.cz"),
		toolMsg(tools.UpdateProfile, map[string]any{"email": "jan@example.cz"}),
	)
	r2 := runTurn(t, r1.Profile, r1.State, turnN1)
	if r2.Lead == nil {
		t.Fatalf("turn N+1 did not fire a lead")
	}
	if r2.Lead.Trigger != "email" {
		t.Errorf("Trigger = %q, want email", r2.Lead.Trigger)
	}
	if r2.Lead.SessionID != "s1" || r2.Lead.TenantID != "t1" {
		t.Errorf("lead session/tenant = %q/%q", r2.Lead.SessionID, r2.Lead.TenantID)
	}
	if !r2.State.LeadCaptured || r2.State.LeadCapturedAt == nil {
		t.Errorf("state not marked captured: %+v", r2.State)
	}

	turnN2 := append(append([]transcript.Message{}, turnN1...), userMsg("Díky"))
	r3 := runTurn(t, r2.Profile, r2.State, turnN2)
	if r3.Lead != nil {
		t.Errorf("turn N+2 fired a second lead")
	}
}

func TestTurnMovesToFollowupOnCapture(t *testing.T) {
	msgs := []transcript.Message{
		userMsg("Volejte mi"),
		toolMsg(tools.UpdateProfile, map[string]any{"phone": "+420777111222", "price": 3000000.0}),
	}
	res := runTurn(t, nil, nil, msgs)
	if res.Lead == nil {
		t.Fatalf("no lead on first contact")
	}
	if res.State.Phase != state.PhaseFollowup {
		t.Errorf("Phase = %q, want %q", res.State.Phase, state.PhaseFollowup)
	}
	if res.Lead.Phase != string(state.PhaseFollowup) {
		t.Errorf("lead phase = %q", res.Lead.Phase)
	}
	if res.OfferLeadCapture {
		t.Errorf("offer set after contact was captured")
	}
}

func TestTurnReplayIsIdempotent(t *testing.T) {
	msgs := []transcript.Message{
		userMsg("Dobrý den"),
		toolMsg(tools.UpdateProfile, map[string]any{"price": 5000000.0, "equity": 1000000.0, "monthlyIncome": 70000.0, "age": 33.0}),
		userMsg("A kolik bych splácel?"),
		toolMsg(tools.ShowPayment, map[string]any{"price": 5000000.0}),
	}
	r1 := runTurn(t, nil, nil, msgs)
	r2 := runTurn(t, r1.Profile, r1.State, msgs)

	if diff := cmp.Diff(r1.Profile, r2.Profile); diff != "" {
		t.Errorf("profile changed on replay (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(r1.Score, r2.Score); diff != "" {
		t.Errorf("score changed on replay (-first +second):\n%s", diff)
	}
	if r1.Prompt.String() != r2.Prompt.String() {
		t.Errorf("prompt changed on replay")
	}
	a, _ := json.Marshal(r1.State)
	b, _ := json.Marshal(r2.State)
	if string(a) != string(b) {
		t.Errorf("state changed on replay:\n%s\n%s", a, b)
	}
}

func TestTurnKeepsWidgetsFromEarlierTurns(t *testing.T) {
	prior := state.New()
	prior.WidgetsShown = []string{tools.ShowStressTest}
	res := runTurn(t, nil, prior, []transcript.Message{
		userMsg("Ukaž mi splátku"),
		toolMsg(tools.ShowPayment, map[string]any{"price": 3000000.0}),
	})
	want := []string{tools.ShowPayment, tools.ShowStressTest}
	if diff := cmp.Diff(want, res.State.WidgetsShown); diff != "" {
		t.Errorf("widgets mismatch (-want +got):\n%s", diff)
	}
	if prior.WidgetsShown[0] != tools.ShowStressTest || len(prior.WidgetsShown) != 1 {
		t.Errorf("prior state was mutated: %v", prior.WidgetsShown)
	}
}

func TestTurnDoesNotMutatePriorProfile(t *testing.T) {
	prior := profile.Profile{profile.FieldPrice: 2000000.0}
	runTurn(t, prior, nil, []transcript.Message{
		toolMsg(tools.UpdateProfile, map[string]any{"equity": 500000.0}),
	})
	if len(prior) != 1 {
		t.Errorf("prior profile mutated: %v", prior)
	}
}

func TestTurnRecordsPreviousValues(t *testing.T) {
	prior := state.New()
	res := runTurn(t, nil, prior, []transcript.Message{
		userMsg("Chci investiční byt"),
		toolMsg(tools.UpdateProfile, map[string]any{"price": 4000000.0, "equity": 1200000.0, "purpose": "investment"}),
	})
	if res.PreviousPhase != state.PhaseGreeting {
		t.Errorf("PreviousPhase = %q, want greeting", res.PreviousPhase)
	}
	if res.State.Phase != state.PhaseAnalysis {
		t.Errorf("Phase = %q, want analysis", res.State.Phase)
	}
	if res.PreviousPersona != state.PersonaUnknown || res.State.Persona != state.PersonaInvestor {
		t.Errorf("persona %q -> %q, want unknown -> investor", res.PreviousPersona, res.State.Persona)
	}
}

func TestTurnMetadata(t *testing.T) {
	msgs := []transcript.Message{userMsg("a"), toolMsg(tools.LogInsight, nil), userMsg("b")}
	res := runTurn(t, nil, nil, msgs)
	if res.State.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2", res.State.TurnCount)
	}
	if n, _ := res.Profile.Int(profile.FieldMessageCount); n != 3 {
		t.Errorf("messageCount = %d, want 3", n)
	}
	for _, key := range []prompt.SectionKey{prompt.SectionBaseIdentity, prompt.SectionPhase, prompt.SectionFinalReminder} {
		if _, ok := res.Prompt.Section(key); !ok {
			t.Errorf("prompt missing section %q", key)
		}
	}
}

func TestUnion(t *testing.T) {
	got := union([]string{"b", "a"}, []string{"c", "a"})
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
	if got := union(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("union(nil, nil) = %#v, want empty slice", got)
	}
}
