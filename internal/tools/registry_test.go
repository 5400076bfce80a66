package tools

import (
	"testing"

	"github.com/lukasbauer/hypoteka/internal/profile"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		internal bool
	}{
		{UpdateProfile, KindProfileUpdate, true},
		{ShowPayment, KindCalculation, false},
		{ShowLeadCapture, KindLeadCapture, false},
		{ShowSpecialists, KindSpecialists, false},
		{LogInsight, KindBookkeeping, true},
		{"show_weather", KindUnknown, false},
		{"", KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lookup(tt.name)
			if got.Kind != tt.kind {
				t.Errorf("Lookup(%q).Kind = %v, want %v", tt.name, got.Kind, tt.kind)
			}
			if got.Internal != tt.internal {
				t.Errorf("Lookup(%q).Internal = %v, want %v", tt.name, got.Internal, tt.internal)
			}
			if got.Name != tt.name {
				t.Errorf("Lookup(%q).Name = %q", tt.name, got.Name)
			}
		})
	}
}

func TestRegisteredNamesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, tool := range Registered {
		if seen[tool.Name] {
			t.Errorf("tool %q registered twice", tool.Name)
		}
		seen[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %q has no description", tool.Name)
		}
	}
}

func TestCalculationToolsCaptureKnownFields(t *testing.T) {
	for _, tool := range Registered {
		for _, f := range tool.Captures {
			if !profile.IsKnown(f) {
				t.Errorf("tool %q captures unknown field %q", tool.Name, f)
			}
		}
	}
	if !Lookup(ShowPayment).CapturesField(profile.FieldPrice) {
		t.Error("show_payment should capture price")
	}
	if Lookup(ShowPayment).CapturesField(profile.FieldEmail) {
		t.Error("show_payment should not capture email")
	}
}

func TestIsOfferTool(t *testing.T) {
	if !IsOfferTool(ShowLeadCapture) || !IsOfferTool(ShowSpecialists) {
		t.Error("lead capture and specialists are offer tools")
	}
	if IsOfferTool(ShowPayment) || IsOfferTool("show_weather") {
		t.Error("calculation and unknown tools are not offer tools")
	}
}
