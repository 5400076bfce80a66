package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	Environment string

	// Error monitoring
	SentryDSN string

	// JWT Authentication
	JWTSecret string

	// Admin access
	AdminPhones []string

	// Turn handling
	TurnTimeout    time.Duration
	MaxBodyBytes   int64
	PromptCacheTTL time.Duration

	// CRM (empty URL logs leads instead of submitting)
	CRMWebhookURL string
	CRMAPIToken   string
	CRMTimeout    time.Duration

	// Lead retry job
	LeadRetryInterval    time.Duration
	LeadRetryMaxAttempts int
	LeadRetryBackoff     time.Duration
	LeadRetryBatchSize   int

	// Advisor notifications
	DiscordWebhookURL string
	APNsKeyPath       string
	APNsKeyID         string
	APNsTeamID        string
	APNsBundleID      string
	APNsProduction    bool

	// Admin dashboard websocket feed
	LiveFeedEnabled bool

	ShutdownTimeout time.Duration
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    httpAddr(),
		DatabaseURL: getenv("DATABASE_URL", ""),
		Environment: getenv("ENVIRONMENT", "development"),

		SentryDSN: getenv("SENTRY_DSN", ""),

		// JWT Authentication
		JWTSecret: os.Getenv("JWT_SECRET"), // Required - no fallback for security

		// Admin access
		AdminPhones: parseAdminPhones(os.Getenv("ADMIN_PHONES")),

		TurnTimeout:    getenvDuration("TURN_TIMEOUT", 20*time.Second),
		MaxBodyBytes:   int64(getenvIntClamped("TURN_MAX_BODY_BYTES", 4<<20, 1<<10, 32<<20)),
		PromptCacheTTL: getenvDuration("PROMPT_CACHE_TTL", 5*time.Minute),

		CRMWebhookURL: getenv("CRM_WEBHOOK_URL", ""),
		CRMAPIToken:   getenv("CRM_API_TOKEN", ""),
		CRMTimeout:    getenvDuration("CRM_TIMEOUT", 10*time.Second),

		LeadRetryInterval:    getenvDuration("LEAD_RETRY_INTERVAL", time.Minute),
		LeadRetryMaxAttempts: getenvIntClamped("LEAD_RETRY_MAX_ATTEMPTS", 5, 1, 20),
		LeadRetryBackoff:     getenvDuration("LEAD_RETRY_BACKOFF", 30*time.Second),
		LeadRetryBatchSize:   getenvIntClamped("LEAD_RETRY_BATCH_SIZE", 50, 1, 500),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
		APNsKeyPath:       getenv("APNS_KEY_PATH", ""),
		APNsKeyID:         getenv("APNS_KEY_ID", ""),
		APNsTeamID:        getenv("APNS_TEAM_ID", ""),
		APNsBundleID:      getenv("APNS_BUNDLE_ID", ""),
		APNsProduction:    getenvBool("APNS_PRODUCTION", false),

		LiveFeedEnabled: getenvBool("LIVE_FEED_ENABLED", true),

		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 25*time.Second),
	}
}

// httpAddr prefers HTTP_ADDR and falls back to the platform's PORT.
func httpAddr() string {
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		return addr
	}
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8080"
}

func parseAdminPhones(s string) []string {
	if s == "" {
		return nil
	}
	var phones []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	return phones
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getenvIntClamped reads an int and clamps it to [min, max]. Unparseable
// values use def.
func getenvIntClamped(k string, def, min, max int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenvBool(k string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return b
}
