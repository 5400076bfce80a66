package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/state"
)

// getTestDB returns a database pool with the schema applied.
// Skips the test if DATABASE_URL is not set.
func getTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	if err := New(db).ApplySchema(ctx); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return db
}

func TestRegulatoryFromValues(t *testing.T) {
	cfg, err := regulatoryFromValues(map[string]string{
		ConfigLTVMax:           "0.8",
		ConfigDSTIMaxYoung:     "0,5",
		ConfigYoungAgeBelow:    " 36 ",
		ConfigAssumedRatePct:   "4.79",
		ConfigAssumedTermYears: "25",
		ConfigRateContext:      "  Sazby stagnují. ",
		ConfigDTIMax:           "",
	})
	if err != nil {
		t.Fatalf("regulatoryFromValues() error = %v", err)
	}
	if cfg.Limits.MaxLTV != 0.8 || cfg.Limits.MaxDSTIYoung != 0.5 || cfg.Limits.YoungAgeBelow != 36 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Limits.MaxDTI != 0 {
		t.Errorf("blank dti_max = %v, want 0 so defaults apply", cfg.Limits.MaxDTI)
	}
	if cfg.Assumptions != (mortgage.Assumptions{RatePct: 4.79, TermYears: 25}) {
		t.Errorf("assumptions = %+v", cfg.Assumptions)
	}
	if cfg.RateContext != "Sazby stagnují." {
		t.Errorf("rate context = %q", cfg.RateContext)
	}
}

func TestRegulatoryFromValuesRejectsGarbage(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"float", map[string]string{ConfigLTVMax: "eighty"}},
		{"int", map[string]string{ConfigYoungAgeBelow: "36.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := regulatoryFromValues(tt.values); err == nil {
				t.Errorf("regulatoryFromValues(%v) error = nil, want error", tt.values)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	id := uuid.NewString()

	if _, err := s.LoadSession(ctx, id); !errors.Is(err, engine.ErrSessionNotFound) {
		t.Fatalf("LoadSession(unknown) error = %v, want ErrSessionNotFound", err)
	}

	st := state.New()
	st.Phase = state.PhaseAnalysis
	st.LeadScore = 45
	st.WidgetsShown = []string{"show_payment"}
	created := time.Now().UTC().Truncate(time.Second)
	sess := engine.Session{
		ID:        id,
		TenantID:  "tenant-a",
		Profile:   profile.Profile{profile.FieldPrice: 4000000.0, profile.FieldEmail: "a@b.cz"},
		State:     st,
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := s.LoadSession(ctx, id)
	if err != nil {
		t.Fatalf("LoadSession failed: %v", err)
	}
	if got.TenantID != "tenant-a" {
		t.Errorf("tenant = %q", got.TenantID)
	}
	if price, _ := got.Profile.Float(profile.FieldPrice); price != 4000000 {
		t.Errorf("price = %v, want 4000000", price)
	}
	if got.State.Phase != state.PhaseAnalysis || got.State.LeadScore != 45 {
		t.Errorf("state = %+v", got.State)
	}

	sess.State.LeadScore = 70
	sess.UpdatedAt = created.Add(time.Minute)
	sess.CreatedAt = created.Add(time.Hour)
	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("second SaveSession failed: %v", err)
	}
	got, _ = s.LoadSession(ctx, id)
	if got.State.LeadScore != 70 {
		t.Errorf("score after update = %d, want 70", got.State.LeadScore)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want first save %v", got.CreatedAt, created)
	}

	items, err := s.ListSessions(ctx, "tenant-a", 10)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			if item.LeadScore != 70 || item.Phase != string(state.PhaseAnalysis) {
				t.Errorf("list item = %+v", item)
			}
		}
	}
	if !found {
		t.Errorf("session %s not listed", id)
	}
}

func TestLeadSubmissionAttempts(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	lead := crm.NewLead(uuid.NewString(), "tenant-a", profile.Profile{profile.FieldEmail: "a@b.cz"}, time.Now())

	if err := s.RecordLeadSubmission(ctx, lead, crm.Result{}, errors.New("crm: status 503")); err != nil {
		t.Fatalf("RecordLeadSubmission failed: %v", err)
	}
	failed, err := s.ListFailedLeads(ctx, 5, 1000)
	if err != nil {
		t.Fatalf("ListFailedLeads failed: %v", err)
	}
	var got *LeadSubmission
	for i := range failed {
		if failed[i].Lead.ID == lead.ID {
			got = &failed[i]
		}
	}
	if got == nil {
		t.Fatalf("failed lead not listed")
	}
	if got.Attempts != 1 || got.LastError == nil || got.Lead.Email != "a@b.cz" {
		t.Errorf("submission = %+v", got)
	}

	if err := s.RecordLeadSubmission(ctx, lead, crm.Result{LeadID: "crm-1"}, nil); err != nil {
		t.Fatalf("second RecordLeadSubmission failed: %v", err)
	}
	status, attempts, err := s.LeadStatusOf(ctx, lead.ID)
	if err != nil {
		t.Fatalf("LeadStatusOf failed: %v", err)
	}
	if status != LeadStatusSubmitted || attempts != 2 {
		t.Errorf("status = %q attempts = %d, want submitted/2", status, attempts)
	}
}

func TestConfigAndFragments(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	s := New(db)
	ctx := context.Background()

	if err := s.SetGlobalConfig(ctx, ConfigLTVMax, "0.75"); err != nil {
		t.Fatalf("SetGlobalConfig failed: %v", err)
	}
	cfg, err := s.RegulatoryConfig(ctx)
	if err != nil {
		t.Fatalf("RegulatoryConfig failed: %v", err)
	}
	if cfg.Limits.MaxLTV != 0.75 {
		t.Errorf("ltv_max = %v, want 0.75", cfg.Limits.MaxLTV)
	}

	tenantID := uuid.NewString()
	f, err := s.TenantFragments(ctx, tenantID)
	if err != nil {
		t.Fatalf("TenantFragments(unconfigured) error = %v", err)
	}
	if f.BaseIdentity != prompt.DefaultFragments().BaseIdentity {
		t.Errorf("unconfigured tenant did not get defaults")
	}

	if err := s.UpsertTenantPromptConfig(ctx, tenantID, "bogus_key: 1\n"); err == nil {
		t.Errorf("UpsertTenantPromptConfig accepted unknown key")
	}
	yaml := "base_identity: Jsi asistent Banky Beta.\ncontact_intensity: high\n"
	if err := s.UpsertTenantPromptConfig(ctx, tenantID, yaml); err != nil {
		t.Fatalf("UpsertTenantPromptConfig failed: %v", err)
	}
	f, err = s.TenantFragments(ctx, tenantID)
	if err != nil {
		t.Fatalf("TenantFragments failed: %v", err)
	}
	if f.BaseIdentity != "Jsi asistent Banky Beta." || f.ContactIntensity != prompt.IntensityHigh {
		t.Errorf("fragments = %+v", f)
	}
}

func TestAdvisorDevices(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	s := New(db)
	ctx := context.Background()
	tenantID := uuid.NewString()
	device := AdvisorDevice{Token: "tok-" + uuid.NewString(), AdvisorID: "advisor-1", TenantID: tenantID, Platform: PlatformIOS}

	if err := s.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("RegisterDevice failed: %v", err)
	}
	device.AdvisorID = "advisor-2"
	if err := s.RegisterDevice(ctx, device); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	devices, err := s.TenantDevices(ctx, tenantID)
	if err != nil {
		t.Fatalf("TenantDevices failed: %v", err)
	}
	if len(devices) != 1 || devices[0].AdvisorID != "advisor-2" {
		t.Errorf("devices = %+v, want one moved to advisor-2", devices)
	}

	if removed, err := s.RemoveDevice(ctx, "advisor-1", device.Token); err != nil || removed {
		t.Errorf("RemoveDevice by previous owner = %v, %v", removed, err)
	}
	if removed, err := s.RemoveDevice(ctx, "advisor-2", device.Token); err != nil || !removed {
		t.Fatalf("RemoveDevice = %v, %v", removed, err)
	}
	devices, _ = s.TenantDevices(ctx, tenantID)
	if len(devices) != 0 {
		t.Errorf("devices after remove = %d", len(devices))
	}
}

func TestTenantOperations(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	s := New(db)
	ctx := context.Background()

	tenant, err := s.CreateTenant(ctx, "Banka Alfa")
	if err != nil {
		t.Fatalf("CreateTenant failed: %v", err)
	}
	if tenant.ID == "" || tenant.Status != "active" {
		t.Errorf("tenant = %+v", tenant)
	}
	got, err := s.GetTenantByID(ctx, tenant.ID)
	if err != nil || got.Name != "Banka Alfa" {
		t.Errorf("GetTenantByID = %+v, %v", got, err)
	}
	if err := s.DeleteTenant(ctx, tenant.ID); err != nil {
		t.Fatalf("DeleteTenant failed: %v", err)
	}
	if _, err := s.GetTenantByID(ctx, tenant.ID); err == nil {
		t.Errorf("tenant still exists after delete")
	}
}
