package app

import (
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	t.Setenv("CRM_WEBHOOK_URL", "https://crm.example.com/leads")
	t.Setenv("CRM_API_TOKEN", "")

	if got := getenv("CRM_WEBHOOK_URL", "unused"); got != "https://crm.example.com/leads" {
		t.Errorf("getenv(set) = %q", got)
	}
	if got := getenv("CRM_API_TOKEN", "fallback"); got != "fallback" {
		t.Errorf("getenv(empty) = %q, want fallback", got)
	}
	if got := getenv("CRM_API_TOKEN", ""); got != "" {
		t.Errorf("getenv(empty, no default) = %q, want empty", got)
	}
}

func TestGetenvIntClamped(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int
	}{
		{"within range", "7", 7},
		{"below min clamps", "0", 1},
		{"above max clamps", "50", 20},
		{"exactly min", "1", 1},
		{"exactly max", "20", 20},
		{"not set uses default", "", 5},
		{"garbage uses default", "five", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LEAD_RETRY_MAX_ATTEMPTS", tt.envValue)
			if got := getenvIntClamped("LEAD_RETRY_MAX_ATTEMPTS", 5, 1, 20); got != tt.want {
				t.Errorf("getenvIntClamped(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      time.Duration
		want     time.Duration
	}{
		{"valid duration", "90s", time.Minute, 90 * time.Second},
		{"not set", "", time.Minute, time.Minute},
		{"invalid", "soon", time.Minute, time.Minute},
		{"zero uses default", "0s", time.Minute, time.Minute},
		{"negative uses default", "-5m", time.Minute, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)
			if got := getenvDuration("TEST_DURATION", tt.def); got != tt.want {
				t.Errorf("getenvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetenvBool(t *testing.T) {
	tests := []struct {
		envValue string
		def      bool
		want     bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"false", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Setenv("TEST_BOOL", tt.envValue)
		if got := getenvBool("TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getenvBool(%q, %v) = %v, want %v", tt.envValue, tt.def, got, tt.want)
		}
	}
}

func TestParseAdminPhones(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"+420602111222", []string{"+420602111222"}},
		{"+420602111222,+420733444555", []string{"+420602111222", "+420733444555"}},
		{" +420602111222 , +420733444555 ", []string{"+420602111222", "+420733444555"}},
		{"+420602111222,,", []string{"+420602111222"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		got := parseAdminPhones(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseAdminPhones(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseAdminPhones(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "PORT", "ENVIRONMENT", "TURN_TIMEOUT", "TURN_MAX_BODY_BYTES",
		"PROMPT_CACHE_TTL", "CRM_WEBHOOK_URL", "CRM_TIMEOUT", "LEAD_RETRY_INTERVAL",
		"LEAD_RETRY_MAX_ATTEMPTS", "LEAD_RETRY_BACKOFF", "LEAD_RETRY_BATCH_SIZE",
		"APNS_PRODUCTION", "LIVE_FEED_ENABLED", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.TurnTimeout != 20*time.Second {
		t.Errorf("TurnTimeout = %v, want 20s", cfg.TurnTimeout)
	}
	if cfg.MaxBodyBytes != 4<<20 {
		t.Errorf("MaxBodyBytes = %d, want %d", cfg.MaxBodyBytes, 4<<20)
	}
	if cfg.PromptCacheTTL != 5*time.Minute {
		t.Errorf("PromptCacheTTL = %v, want 5m", cfg.PromptCacheTTL)
	}
	if cfg.CRMWebhookURL != "" || cfg.CRMTimeout != 10*time.Second {
		t.Errorf("CRM = %q / %v, want empty / 10s", cfg.CRMWebhookURL, cfg.CRMTimeout)
	}
	if cfg.LeadRetryInterval != time.Minute || cfg.LeadRetryMaxAttempts != 5 ||
		cfg.LeadRetryBackoff != 30*time.Second || cfg.LeadRetryBatchSize != 50 {
		t.Errorf("lead retry = %v/%d/%v/%d", cfg.LeadRetryInterval, cfg.LeadRetryMaxAttempts, cfg.LeadRetryBackoff, cfg.LeadRetryBatchSize)
	}
	if cfg.APNsProduction {
		t.Error("APNsProduction should default to false")
	}
	if !cfg.LiveFeedEnabled {
		t.Error("LiveFeedEnabled should default to true")
	}
}

func TestLoadConfigFromEnvCustomValues(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PROMPT_CACHE_TTL", "30s")
	t.Setenv("CRM_WEBHOOK_URL", "https://crm.example.com/leads")
	t.Setenv("CRM_API_TOKEN", "crm-token")
	t.Setenv("LEAD_RETRY_MAX_ATTEMPTS", "99")
	t.Setenv("TURN_MAX_BODY_BYTES", "10")
	t.Setenv("APNS_PRODUCTION", "true")
	t.Setenv("LIVE_FEED_ENABLED", "false")
	t.Setenv("ADMIN_PHONES", "+420777123456,+420777654321")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "production")
	}
	if cfg.PromptCacheTTL != 30*time.Second {
		t.Errorf("PromptCacheTTL = %v, want 30s", cfg.PromptCacheTTL)
	}
	if cfg.CRMWebhookURL != "https://crm.example.com/leads" || cfg.CRMAPIToken != "crm-token" {
		t.Errorf("CRM = %q / %q", cfg.CRMWebhookURL, cfg.CRMAPIToken)
	}
	if cfg.LeadRetryMaxAttempts != 20 {
		t.Errorf("LeadRetryMaxAttempts = %d, want clamp to 20", cfg.LeadRetryMaxAttempts)
	}
	if cfg.MaxBodyBytes != 1<<10 {
		t.Errorf("MaxBodyBytes = %d, want clamp to %d", cfg.MaxBodyBytes, 1<<10)
	}
	if !cfg.APNsProduction || cfg.LiveFeedEnabled {
		t.Errorf("APNsProduction = %v, LiveFeedEnabled = %v", cfg.APNsProduction, cfg.LiveFeedEnabled)
	}
	if len(cfg.AdminPhones) != 2 {
		t.Errorf("AdminPhones length = %d, want 2", len(cfg.AdminPhones))
	}
}

func TestHTTPAddrFallsBackToPort(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "3000")

	if got := httpAddr(); got != ":3000" {
		t.Errorf("httpAddr() = %q, want %q", got, ":3000")
	}
}
