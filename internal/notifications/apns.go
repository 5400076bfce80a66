package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/store"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const leadPushTTL = 24 * time.Hour

// APNsConfig locates the .p8 signing key of the advisor app.
type APNsConfig struct {
	KeyPath    string
	KeyID      string
	TeamID     string
	BundleID   string
	Production bool
}

func (c APNsConfig) complete() bool {
	return c.KeyPath != "" && c.KeyID != "" && c.TeamID != "" && c.BundleID != ""
}

type pushClient interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

// APNsClient pushes to the advisor app. A nil client sends nothing.
type APNsClient struct {
	client   pushClient
	bundleID string
	logger   *log.Logger
}

// NewAPNsClient returns nil, nil when the configuration is incomplete.
func NewAPNsClient(cfg APNsConfig, logger *log.Logger) (*APNsClient, error) {
	if !cfg.complete() {
		logger.Println("APNs: missing configuration, push notifications disabled")
		return nil, nil
	}
	key, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load APNs key %s: %w", cfg.KeyPath, err)
	}

	client := apns2.NewTokenClient(&token.Token{AuthKey: key, KeyID: cfg.KeyID, TeamID: cfg.TeamID})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	logger.Printf("APNs: client initialized (production=%v, bundle=%s)", cfg.Production, cfg.BundleID)
	return &APNsClient{client: client, bundleID: cfg.BundleID, logger: logger}, nil
}

// RejectedError is returned when APNs answers with a non-200 status.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("APNs rejected notification: status %d, %s", e.Status, e.Reason)
}

// Stale reports whether the device token will never be valid again.
func (e *RejectedError) Stale() bool {
	return e.Reason == apns2.ReasonBadDeviceToken || e.Reason == apns2.ReasonUnregistered
}

// LeadNotification is what an advisor sees about a new lead.
type LeadNotification struct {
	LeadID      string
	SessionID   string
	Name        string
	Score       int
	Temperature string
}

func (n LeadNotification) title() string {
	if n.Name != "" {
		return "Nový zájemce: " + n.Name
	}
	return "Nový zájemce o hypotéku"
}

func (n LeadNotification) payload() *payload.Payload {
	return payload.NewPayload().
		AlertTitle(n.title()).
		AlertBody(fmt.Sprintf("Skóre %d/100 (%s). Ozvěte se co nejdříve.", n.Score, n.Temperature)).
		Sound("default").
		Custom("lead_id", n.LeadID).
		Custom("session_id", n.SessionID)
}

// SendLeadNotification pushes a new-lead alert to one device.
func (c *APNsClient) SendLeadNotification(deviceToken string, n LeadNotification) error {
	if c == nil || c.client == nil {
		return nil
	}
	res, err := c.client.Push(&apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.bundleID,
		Payload:     n.payload(),
		Expiration:  time.Now().Add(leadPushTTL),
	})
	if err != nil {
		return fmt.Errorf("APNs push: %w", err)
	}
	if !res.Sent() {
		return &RejectedError{Status: res.StatusCode, Reason: res.Reason}
	}
	return nil
}

// DeviceSource lists a tenant's advisor devices and drops dead ones.
type DeviceSource interface {
	TenantDevices(ctx context.Context, tenantID string) ([]store.AdvisorDevice, error)
	RemoveDevice(ctx context.Context, advisorID, token string) (bool, error)
}

// LeadPusher notifies every iOS advisor device of the lead's tenant.
type LeadPusher struct {
	apns    *APNsClient
	devices DeviceSource
	logger  *log.Logger
}

func NewLeadPusher(apns *APNsClient, devices DeviceSource, logger *log.Logger) *LeadPusher {
	return &LeadPusher{apns: apns, devices: devices, logger: logger}
}

func (p *LeadPusher) NotifyNewLead(ctx context.Context, lead crm.Lead) {
	if p == nil || p.apns == nil || lead.TenantID == "" {
		return
	}
	devices, err := p.devices.TenantDevices(ctx, lead.TenantID)
	if err != nil {
		p.logger.Printf("APNs: failed to load devices for tenant %s: %v", lead.TenantID, err)
		return
	}
	n := LeadNotification{
		LeadID:      lead.ID,
		SessionID:   lead.SessionID,
		Name:        lead.Name,
		Score:       lead.Score,
		Temperature: lead.Temperature,
	}
	sent := 0
	for _, d := range devices {
		if d.Platform != store.PlatformIOS {
			continue
		}
		err := p.apns.SendLeadNotification(d.Token, n)
		var rejected *RejectedError
		switch {
		case err == nil:
			sent++
		case errors.As(err, &rejected) && rejected.Stale():
			if _, err := p.devices.RemoveDevice(ctx, d.AdvisorID, d.Token); err != nil {
				p.logger.Printf("APNs: failed to prune device of %s: %v", d.AdvisorID, err)
			} else {
				p.logger.Printf("APNs: pruned stale device of advisor %s", d.AdvisorID)
			}
		default:
			p.logger.Printf("APNs: lead %s not delivered to advisor %s: %v", lead.ID, d.AdvisorID, err)
		}
	}
	p.logger.Printf("APNs: lead %s pushed to %d device(s) of tenant %s", lead.ID, sent, lead.TenantID)
}
