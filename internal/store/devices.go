package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// ValidPlatform reports whether p is a platform the pusher knows.
func ValidPlatform(p string) bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// AdvisorDevice is a phone of a tenant's advisor that receives new-lead pushes.
// A push token identifies one physical device, so a re-registration under a
// different advisor or tenant moves the device.
type AdvisorDevice struct {
	Token        string    `json:"token"`
	AdvisorID    string    `json:"advisor_id"`
	TenantID     string    `json:"tenant_id"`
	Platform     string    `json:"platform"`
	RegisteredAt time.Time `json:"registered_at"`
}

func (s *Store) RegisterDevice(ctx context.Context, d AdvisorDevice) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO advisor_devices (token, advisor_id, tenant_id, platform)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE
		SET advisor_id = EXCLUDED.advisor_id,
		    tenant_id = EXCLUDED.tenant_id,
		    platform = EXCLUDED.platform,
		    registered_at = NOW()
	`, d.Token, d.AdvisorID, d.TenantID, d.Platform)
	return err
}

// RemoveDevice deletes the token when it belongs to advisorID. It reports
// whether a row was removed.
func (s *Store) RemoveDevice(ctx context.Context, advisorID, token string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM advisor_devices WHERE token = $1 AND advisor_id = $2`,
		token, advisorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TenantDevices lists the devices registered for a tenant, newest first.
func (s *Store) TenantDevices(ctx context.Context, tenantID string) ([]AdvisorDevice, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token, advisor_id, tenant_id, platform, registered_at
		FROM advisor_devices
		WHERE tenant_id = $1
		ORDER BY registered_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdvisorDevice, error) {
		var d AdvisorDevice
		err := row.Scan(&d.Token, &d.AdvisorID, &d.TenantID, &d.Platform, &d.RegisteredAt)
		return d, err
	})
}
