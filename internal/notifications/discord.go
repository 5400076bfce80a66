package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lukasbauer/hypoteka/internal/crm"
)

const (
	discordTimeout  = 10 * time.Second
	colorExhausted  = 0xFF0000
	missingFieldVal = "-"
)

var temperatureColor = map[string]int{
	"cold":      0x5DADE2,
	"warm":      0xF5B041,
	"hot":       0xE67E22,
	"qualified": 0x00FF00,
}

type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

func inline(name, value string) embedField {
	if value == "" {
		value = missingFieldVal
	}
	return embedField{Name: name, Value: value, Inline: true}
}

func code(s string) string {
	if s == "" {
		return missingFieldVal
	}
	return "`" + s + "`"
}

func contactLine(lead crm.Lead) string {
	var parts []string
	for _, c := range []string{lead.Email, lead.Phone} {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, ", ")
}

func newLeadMessage(lead crm.Lead) discordMessage {
	return discordMessage{Embeds: []discordEmbed{{
		Title:       "Nový lead",
		Description: fmt.Sprintf("Klient zanechal kontakt v rozhovoru `%s`", lead.SessionID),
		Color:       temperatureColor[lead.Temperature],
		Fields: []embedField{
			inline("Jméno", lead.Name),
			inline("Kontakt", contactLine(lead)),
			inline("Skóre", fmt.Sprintf("%d (%s)", lead.Score, lead.Temperature)),
			inline("Fáze", lead.Phase),
			inline("Persona", lead.Persona),
			inline("Tenant", code(lead.TenantID)),
		},
		Timestamp: lead.CreatedAt.UTC().Format(time.RFC3339),
	}}}
}

func exhaustedMessage(lead crm.Lead, attempts int, lastErr string, at time.Time) discordMessage {
	return discordMessage{
		Content: "@here",
		Embeds: []discordEmbed{{
			Title:       "Lead se nepodařilo předat do CRM",
			Description: fmt.Sprintf("Po %d pokusech to vzdáváme. Předejte ho ručně.", attempts),
			Color:       colorExhausted,
			Fields: []embedField{
				inline("Lead ID", code(lead.ID)),
				inline("Session", code(lead.SessionID)),
				{Name: "Chyba", Value: lastErr},
			},
			Timestamp: at.UTC().Format(time.RFC3339),
		}},
	}
}

// Discord posts lead alerts to a team channel webhook. Posts run in the
// background; Wait blocks until they finish.
type Discord struct {
	webhookURL string
	logger     *log.Logger
	client     *http.Client
	wg         sync.WaitGroup
}

// NewDiscord returns a notifier that does nothing when webhookURL is empty.
func NewDiscord(webhookURL string, logger *log.Logger) *Discord {
	return &Discord{
		webhookURL: webhookURL,
		logger:     logger,
		client:     &http.Client{Timeout: discordTimeout},
	}
}

func (d *Discord) Enabled() bool {
	return d != nil && d.webhookURL != ""
}

func (d *Discord) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func (d *Discord) post(ctx context.Context, msg discordMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Discord) sendAsync(ctx context.Context, msg discordMessage) {
	if !d.Enabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.post(context.WithoutCancel(ctx), msg); err != nil {
			d.logger.Printf("discord: %v", err)
		}
	}()
}

// NotifyNewLead posts a lead the CRM accepted.
func (d *Discord) NotifyNewLead(ctx context.Context, lead crm.Lead) {
	d.sendAsync(ctx, newLeadMessage(lead))
}

// NotifyLeadRetriesExhausted pings the team about a lead the CRM never took.
func (d *Discord) NotifyLeadRetriesExhausted(ctx context.Context, lead crm.Lead, attempts int, lastErr string) {
	d.sendAsync(ctx, exhaustedMessage(lead, attempts, lastErr, time.Now()))
}
