package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lukasbauer/hypoteka/internal/cache"
	"github.com/lukasbauer/hypoteka/internal/crm"
	"github.com/lukasbauer/hypoteka/internal/eventlog"
	"github.com/lukasbauer/hypoteka/internal/mortgage"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/prompt"
	"github.com/lukasbauer/hypoteka/internal/scoring"
	"github.com/lukasbauer/hypoteka/internal/state"
	"github.com/lukasbauer/hypoteka/internal/transcript"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSessionNotFound = errors.New("engine: session not found")
	ErrTenantMismatch  = errors.New("engine: session belongs to another tenant")
)

// Session is the persisted state of one conversation.
type Session struct {
	ID        string                   `json:"id"`
	TenantID  string                   `json:"tenant_id"`
	Profile   profile.Profile          `json:"profile"`
	State     *state.ConversationState `json:"state"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// SessionStore loads and saves sessions. LoadSession returns
// ErrSessionNotFound for an unknown id.
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (Session, error)
	SaveSession(ctx context.Context, s Session) error
}

// RegulatoryConfig is the point-in-time snapshot of limits and rates.
type RegulatoryConfig struct {
	Limits      mortgage.Limits
	Assumptions mortgage.Assumptions
	RateContext string
}

func DefaultRegulatoryConfig() RegulatoryConfig {
	return RegulatoryConfig{Limits: mortgage.DefaultLimits(), Assumptions: mortgage.DefaultAssumptions()}
}

type ConfigSource interface {
	RegulatoryConfig(ctx context.Context) (RegulatoryConfig, error)
}

type FragmentSource interface {
	TenantFragments(ctx context.Context, tenantID string) (prompt.Fragments, error)
}

// LeadDispatcher submits a lead without blocking.
type LeadDispatcher interface {
	Dispatch(lead crm.Lead)
}

// EventLogger receives session events.
type EventLogger interface {
	LogAsync(sessionID string, eventType eventlog.EventType, data map[string]any)
}

// TurnSummary is published to observers after every processed turn.
type TurnSummary struct {
	SessionID     string    `json:"session_id"`
	TenantID      string    `json:"tenant_id"`
	Phase         string    `json:"phase"`
	Persona       string    `json:"persona"`
	Score         int       `json:"score"`
	Temperature   string    `json:"temperature"`
	LeadSubmitted bool      `json:"lead_submitted"`
	At            time.Time `json:"at"`
}

type TurnObserver interface {
	ObserveTurn(TurnSummary)
}

// ServiceConfig wires a Service. Only Sessions is required.
type ServiceConfig struct {
	Sessions   SessionStore
	Config     ConfigSource
	Fragments  FragmentSource
	Dispatcher LeadDispatcher
	Events     EventLogger
	Logger     *log.Logger
	CacheTTL   time.Duration
	Now        func() time.Time
}

// Service runs turns against persisted sessions. Turns of one session are
// serialized; different sessions run in parallel.
type Service struct {
	sessions   SessionStore
	dispatcher LeadDispatcher
	events     EventLogger
	logger     *log.Logger
	now        func() time.Time

	regulatory *cache.TTL[string, RegulatoryConfig]
	fragments  *cache.TTL[string, prompt.Fragments]
	locks      *keyedMutex

	mu        sync.RWMutex
	observers []TurnObserver
}

const globalConfigKey = "global"

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Service{
		sessions:   cfg.Sessions,
		dispatcher: cfg.Dispatcher,
		events:     cfg.Events,
		logger:     logger,
		now:        now,
		locks:      newKeyedMutex(),
	}

	configSrc := cfg.Config
	s.regulatory = cache.New(ttl, now, func(ctx context.Context, _ string) (RegulatoryConfig, error) {
		if configSrc == nil {
			return DefaultRegulatoryConfig(), nil
		}
		return configSrc.RegulatoryConfig(ctx)
	})
	fragmentSrc := cfg.Fragments
	s.fragments = cache.New(ttl, now, func(ctx context.Context, tenantID string) (prompt.Fragments, error) {
		if fragmentSrc == nil || tenantID == "" {
			return prompt.DefaultFragments(), nil
		}
		return fragmentSrc.TenantFragments(ctx, tenantID)
	})
	return s
}

// AddObserver registers o for turn summaries.
func (s *Service) AddObserver(o TurnObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// TurnRequest is one turn as received from the chat transport.
type TurnRequest struct {
	SessionID string
	TenantID  string
	Messages  []transcript.Message
}

// Outcome is a processed turn.
type Outcome struct {
	SessionID     string
	Result        TurnResult
	LeadSubmitted bool
}

// ProcessTurn loads the session, runs the turn, saves it and only then
// dispatches a captured lead. The compiled prompt never waits on the CRM.
func (s *Service) ProcessTurn(ctx context.Context, req TurnRequest) (Outcome, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	var (
		sess      Session
		found     bool
		reg       RegulatoryConfig
		fragments prompt.Fragments
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.sessions.LoadSession(gctx, sessionID)
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("load session: %w", err)
		}
		sess, found = loaded, true
		return nil
	})
	g.Go(func() error {
		reg = s.regulatoryConfig(gctx, sessionID)
		return nil
	})
	g.Go(func() error {
		fragments = s.tenantFragments(gctx, sessionID, req.TenantID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	now := s.now()
	if !found {
		sess = Session{ID: sessionID, TenantID: req.TenantID, Profile: profile.Profile{}, State: state.New(), CreatedAt: now}
	} else if req.TenantID != "" && sess.TenantID != "" && sess.TenantID != req.TenantID {
		return Outcome{}, ErrTenantMismatch
	} else if req.TenantID == "" && sess.TenantID != "" {
		fragments = s.tenantFragments(ctx, sessionID, sess.TenantID)
	}

	if strings.TrimSpace(fragments.RateContext) == "" {
		fragments.RateContext = reg.RateContext
	}

	res, err := Turn(TurnInput{
		SessionID:    sessionID,
		TenantID:     sess.TenantID,
		Messages:     req.Messages,
		PriorProfile: sess.Profile,
		PriorState:   sess.State,
		Limits:       reg.Limits,
		Assumptions:  reg.Assumptions,
		Fragments:    fragments,
		Now:          now,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("run turn: %w", err)
	}

	sess.Profile = res.Profile
	sess.State = res.State
	sess.UpdatedAt = now
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return Outcome{}, fmt.Errorf("save session: %w", err)
	}

	out := Outcome{SessionID: sessionID, Result: res}
	if res.Lead != nil {
		s.logEvent(sessionID, eventlog.EventLeadCaptured, map[string]any{
			"lead_id": res.Lead.ID,
			"trigger": res.Lead.Trigger,
			"score":   res.Score.Score,
		})
		if s.dispatcher != nil {
			s.dispatcher.Dispatch(*res.Lead)
			out.LeadSubmitted = true
		} else {
			s.logger.Printf("engine: lead %s captured for session %s but no dispatcher configured", res.Lead.ID, sessionID)
		}
	}

	s.logTransitions(sessionID, res)
	s.publish(TurnSummary{
		SessionID:     sessionID,
		TenantID:      sess.TenantID,
		Phase:         string(res.State.Phase),
		Persona:       string(res.State.Persona),
		Score:         res.Score.Score,
		Temperature:   string(res.Score.Temperature),
		LeadSubmitted: out.LeadSubmitted,
		At:            now,
	})
	return out, nil
}

// GetSession returns the stored session.
func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return s.sessions.LoadSession(ctx, id)
}

// InvalidateTenant drops the cached fragments of a tenant.
func (s *Service) InvalidateTenant(tenantID string) {
	s.fragments.Invalidate(tenantID)
}

// RefreshTenant reloads the fragments of a tenant.
func (s *Service) RefreshTenant(ctx context.Context, tenantID string) error {
	_, err := s.fragments.Refresh(ctx, tenantID)
	return err
}

// InvalidateRegulatoryConfig drops the cached limits and rates.
func (s *Service) InvalidateRegulatoryConfig() {
	s.regulatory.Invalidate(globalConfigKey)
}

func (s *Service) regulatoryConfig(ctx context.Context, sessionID string) RegulatoryConfig {
	reg, err := s.regulatory.Get(ctx, globalConfigKey)
	if err != nil {
		s.logger.Printf("engine: regulatory config unavailable, using defaults: %v", err)
		s.logEvent(sessionID, eventlog.EventLimitsFallback, map[string]any{"error": err.Error()})
		return DefaultRegulatoryConfig()
	}
	reg.Limits = reg.Limits.WithDefaults()
	if reg.Assumptions.RatePct <= 0 || reg.Assumptions.TermYears <= 0 {
		d := mortgage.DefaultAssumptions()
		if reg.Assumptions.RatePct <= 0 {
			reg.Assumptions.RatePct = d.RatePct
		}
		if reg.Assumptions.TermYears <= 0 {
			reg.Assumptions.TermYears = d.TermYears
		}
	}
	return reg
}

func (s *Service) tenantFragments(ctx context.Context, sessionID, tenantID string) prompt.Fragments {
	f, err := s.fragments.Get(ctx, tenantID)
	if err != nil {
		s.logger.Printf("engine: prompt fragments for tenant %s unavailable, using defaults: %v", tenantID, err)
		s.logEvent(sessionID, eventlog.EventFragmentsFallback, map[string]any{"tenant_id": tenantID, "error": err.Error()})
		return prompt.DefaultFragments()
	}
	return f
}

func (s *Service) logTransitions(sessionID string, res TurnResult) {
	s.logEvent(sessionID, eventlog.EventTurnProcessed, map[string]any{
		"phase":       string(res.State.Phase),
		"score":       res.Score.Score,
		"temperature": string(res.Score.Temperature),
		"turn_count":  res.State.TurnCount,
	})
	if res.PreviousPhase != res.State.Phase {
		s.logEvent(sessionID, eventlog.EventPhaseChanged, map[string]any{
			"from": string(res.PreviousPhase),
			"to":   string(res.State.Phase),
		})
	}
	if res.PreviousPersona != res.State.Persona {
		s.logEvent(sessionID, eventlog.EventPersonaChanged, map[string]any{
			"from": string(res.PreviousPersona),
			"to":   string(res.State.Persona),
		})
	}
	if tempRank[res.Score.Temperature] > tempRank[res.PreviousTemp] {
		s.logEvent(sessionID, eventlog.EventTemperatureRaised, map[string]any{
			"from":  string(res.PreviousTemp),
			"to":    string(res.Score.Temperature),
			"score": res.Score.Score,
		})
	}
}

var tempRank = map[scoring.Temperature]int{
	scoring.TempCold:      1,
	scoring.TempWarm:      2,
	scoring.TempHot:       3,
	scoring.TempQualified: 4,
}

func (s *Service) logEvent(sessionID string, t eventlog.EventType, data map[string]any) {
	if s.events == nil {
		return
	}
	s.events.LogAsync(sessionID, t, data)
}

func (s *Service) publish(sum TurnSummary) {
	s.mu.RLock()
	observers := append([]TurnObserver(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range observers {
		o.ObserveTurn(sum)
	}
}
