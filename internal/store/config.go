package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/prompt"
)

// global_config keys read by RegulatoryConfig.
const (
	ConfigLTVMax           = "ltv_max"
	ConfigLTVMaxYoung      = "ltv_max_young"
	ConfigDSTIMax          = "dsti_max"
	ConfigDSTIMaxYoung     = "dsti_max_young"
	ConfigDTIMax           = "dti_max"
	ConfigDTIMaxYoung      = "dti_max_young"
	ConfigYoungAgeBelow    = "young_age_below"
	ConfigAssumedRatePct   = "assumed_rate_pct"
	ConfigAssumedTermYears = "assumed_term_years"
	ConfigRateContext      = "rate_context"
)

// GetGlobalConfig returns one global_config value.
func (s *Store) GetGlobalConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `
		SELECT value FROM global_config WHERE key = $1
	`, key).Scan(&value)
	return value, err
}

func (s *Store) SetGlobalConfig(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO global_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, key, value)
	return err
}

// RegulatoryConfig reads the current limits and rate assumptions. Keys that
// are not set stay zero; the engine fills them from its defaults.
func (s *Store) RegulatoryConfig(ctx context.Context) (engine.RegulatoryConfig, error) {
	rows, err := s.db.Query(ctx, `
		SELECT key, value FROM global_config WHERE key = ANY($1)
	`, []string{
		ConfigLTVMax, ConfigLTVMaxYoung, ConfigDSTIMax, ConfigDSTIMaxYoung, ConfigDTIMax, ConfigDTIMaxYoung,
		ConfigYoungAgeBelow, ConfigAssumedRatePct, ConfigAssumedTermYears, ConfigRateContext,
	})
	if err != nil {
		return engine.RegulatoryConfig{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return engine.RegulatoryConfig{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return engine.RegulatoryConfig{}, err
	}
	return regulatoryFromValues(values)
}

func regulatoryFromValues(values map[string]string) (engine.RegulatoryConfig, error) {
	var cfg engine.RegulatoryConfig
	floats := map[string]*float64{
		ConfigLTVMax:         &cfg.Limits.MaxLTV,
		ConfigLTVMaxYoung:    &cfg.Limits.MaxLTVYoung,
		ConfigDSTIMax:        &cfg.Limits.MaxDSTI,
		ConfigDSTIMaxYoung:   &cfg.Limits.MaxDSTIYoung,
		ConfigDTIMax:         &cfg.Limits.MaxDTI,
		ConfigDTIMaxYoung:    &cfg.Limits.MaxDTIYoung,
		ConfigAssumedRatePct: &cfg.Assumptions.RatePct,
	}
	for key, dst := range floats {
		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
		if err != nil {
			return engine.RegulatoryConfig{}, fmt.Errorf("global_config %s: %w", key, err)
		}
		*dst = f
	}
	ints := map[string]*int{
		ConfigYoungAgeBelow:    &cfg.Limits.YoungAgeBelow,
		ConfigAssumedTermYears: &cfg.Assumptions.TermYears,
	}
	for key, dst := range ints {
		raw, ok := values[key]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return engine.RegulatoryConfig{}, fmt.Errorf("global_config %s: %w", key, err)
		}
		*dst = n
	}
	cfg.RateContext = strings.TrimSpace(values[ConfigRateContext])
	return cfg, nil
}

// TenantFragments loads the tenant's prompt fragment YAML. A tenant without
// a stored configuration gets the defaults.
func (s *Store) TenantFragments(ctx context.Context, tenantID string) (prompt.Fragments, error) {
	var raw string
	err := s.db.QueryRow(ctx, `
		SELECT fragments FROM tenant_prompt_configs WHERE tenant_id = $1
	`, tenantID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return prompt.DefaultFragments(), nil
	}
	if err != nil {
		return prompt.Fragments{}, err
	}
	f, err := prompt.LoadFragments(strings.NewReader(raw))
	if err != nil {
		return prompt.Fragments{}, fmt.Errorf("tenant %s: %w", tenantID, err)
	}
	return f, nil
}

// UpsertTenantPromptConfig stores the fragment YAML after checking it parses.
func (s *Store) UpsertTenantPromptConfig(ctx context.Context, tenantID, fragmentsYAML string) error {
	if _, err := prompt.LoadFragments(strings.NewReader(fragmentsYAML)); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO tenant_prompt_configs (tenant_id, fragments)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE SET
			fragments = EXCLUDED.fragments,
			updated_at = NOW()
	`, tenantID, fragmentsYAML)
	return err
}
