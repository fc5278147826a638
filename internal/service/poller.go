package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DevRickLin/msg-forwarder/internal/biz"
	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
	"github.com/DevRickLin/msg-forwarder/internal/telemetry"
)

// Skip reasons
const (
	ReasonSenderNotAllowed = "sender_not_allowed"
	ReasonDuplicate        = "duplicate"
	ReasonGatePrefix       = "gate:"

	defaultHousekeeping = 300 * time.Second
	outputLogLimit      = 500
)

// PollerConfig contains poll loop configuration
type PollerConfig struct {
	PollInterval        time.Duration
	AllowedSenders      []string
	DedupeWindowSeconds int
	HousekeepingSpec    string
}

// Stats is a snapshot of the loop's counters
type Stats struct {
	SentCount     int64
	SkippedCount  int64
	FailedCount   int64
	LastCursor    int64
	DedupeEntries int
	Cycles        int64
	LastGate      domain.GateDecision
	HasGate       bool
	LastForwardAt float64
	TransportName string
}

// CycleResult summarizes one poll cycle
type CycleResult struct {
	Fetched    int
	Sent       int
	Skipped    int
	Failed     int
	Suppressed int
	Cursor     int64
}

// Poller is the forwarding loop. It exclusively owns the daemon state and
// must only be driven from one goroutine.
type Poller struct {
	source    *usecase.SourceUsecase
	gate      *usecase.GateUsecase
	dispatch  *usecase.DispatchUsecase
	stateRepo repo.StateRepo

	config   PollerConfig
	allowed  map[string]struct{}
	schedule cron.Schedule
	state    *domain.DaemonState
	seeded   bool
	cycles   int64

	now    func() time.Time
	logger *slog.Logger
}

// NewPoller creates a poll loop over the given usecases. State is loaded
// from stateRepo immediately.
func NewPoller(uc *biz.Usecases, stateRepo repo.StateRepo, config PollerConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "poller")

	if config.PollInterval < 2*time.Second {
		config.PollInterval = 2 * time.Second
	}

	allowed := make(map[string]struct{}, len(config.AllowedSenders))
	for _, s := range config.AllowedSenders {
		allowed[s] = struct{}{}
	}

	schedule, err := cron.ParseStandard(config.HousekeepingSpec)
	if err != nil {
		logger.Warn("invalid housekeeping schedule, using fixed interval",
			"schedule", config.HousekeepingSpec, "interval", defaultHousekeeping, "error", err)
		schedule = cron.Every(defaultHousekeeping)
	}

	return &Poller{
		source:    uc.Source,
		gate:      uc.Gate,
		dispatch:  uc.Dispatch,
		stateRepo: stateRepo,
		config:    config,
		allowed:   allowed,
		schedule:  schedule,
		state:     stateRepo.Load(),
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source used for dedupe and timestamps
func (p *Poller) SetClock(now func() time.Time) {
	p.now = now
}

// Stats returns a snapshot of the current counters
func (p *Poller) Stats() Stats {
	s := Stats{
		SentCount:     p.state.SentCount,
		SkippedCount:  p.state.SkippedCount,
		FailedCount:   p.state.FailedCount,
		LastCursor:    p.state.LastCursor,
		DedupeEntries: len(p.state.RecentMessages),
		Cycles:        p.cycles,
		LastForwardAt: p.state.LastForwardedAt,
		TransportName: p.dispatch.TransportName(),
	}
	s.LastGate, s.HasGate = p.gate.LastDecision()
	return s
}

// Run drives the loop until ctx is cancelled: an immediate cycle, then one
// cycle per poll tick and a prune on each housekeeping fire. State is saved
// a final time on exit.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poll loop started",
		"interval", p.config.PollInterval,
		"housekeeping", p.config.HousekeepingSpec,
		"cursor", p.state.LastCursor,
		"transport", p.dispatch.TransportName(),
	)

	// cycles run to completion even when shutdown is requested mid-batch
	work := context.WithoutCancel(ctx)

	p.tick(work)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	housekeeping := time.NewTimer(p.nextHousekeeping())
	defer housekeeping.Stop()

	for {
		select {
		case <-ctx.Done():
			p.save("shutdown")
			st := p.Stats()
			p.logger.Info("poll loop stopped",
				"sent", st.SentCount,
				"skipped", st.SkippedCount,
				"failed", st.FailedCount,
				"cursor", st.LastCursor,
				"cycles", st.Cycles,
			)
			return nil
		case <-ticker.C:
			p.tick(work)
		case <-housekeeping.C:
			p.Housekeep()
			housekeeping.Reset(p.nextHousekeeping())
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.seeded {
		if !p.Seed(ctx) {
			return
		}
	}
	p.RunCycle(ctx)
}

func (p *Poller) nextHousekeeping() time.Duration {
	now := time.Now()
	d := p.schedule.Next(now).Sub(now)
	if d <= 0 {
		return defaultHousekeeping
	}
	return d
}

// Seed initializes a never-set cursor to the store's current maximum so
// the backlog is not replayed. It reports whether the loop may poll.
func (p *Poller) Seed(ctx context.Context) bool {
	if p.state.LastCursor != 0 {
		p.seeded = true
		return true
	}

	maxCursor, err := p.source.MaxCursor(ctx)
	if err != nil {
		p.logger.Warn("cursor seeding failed, will retry", "event", "seed", "error", err)
		return false
	}

	p.state.AdvanceCursor(maxCursor)
	p.seeded = true
	p.logger.Info("cursor seeded", "event", "seed", "cursor", p.state.LastCursor)
	p.save("seed")
	return true
}

// RunCycle fetches one page of new messages and processes them in order.
// State is persisted once at the end.
func (p *Poller) RunCycle(ctx context.Context) CycleResult {
	p.cycles++

	batch := p.source.FetchSince(ctx, p.state.LastCursor)
	result := CycleResult{Fetched: len(batch.Messages)}

	for _, msg := range batch.Messages {
		p.process(ctx, msg, &result)
	}

	// noise rows dropped by the source still move the cursor
	p.state.AdvanceCursor(batch.HighWater)
	result.Cursor = p.state.LastCursor

	if result.Fetched > 0 || batch.HighWater > 0 {
		p.logger.Debug("cycle complete",
			"event", "cycle",
			"fetched", result.Fetched,
			"sent", result.Sent,
			"skipped", result.Skipped,
			"failed", result.Failed,
			"cursor", result.Cursor,
		)
	}

	p.save("cycle")
	return result
}

func (p *Poller) process(ctx context.Context, msg domain.IncomingMessage, result *CycleResult) {
	p.state.AdvanceCursor(msg.Cursor)

	sender := usecase.SanitizeSender(msg.SenderName)
	attrs := append([]any{"event", "message", "sender", sender, "cursor", msg.Cursor},
		telemetry.ContentAttrs(msg.Text)...)

	if len(p.allowed) > 0 {
		if _, ok := p.allowed[sender]; !ok {
			p.skip(result, attrs, ReasonSenderNotAllowed)
			return
		}
	}

	decision := p.gate.Evaluate(ctx)
	if !decision.Allow {
		p.skip(result, append(attrs, "gate_cached", decision.Cached), ReasonGatePrefix+decision.Reason)
		return
	}

	now := p.now()
	if usecase.ShouldSuppress(p.state, sender, usecase.NormalizeText(msg.Text), p.config.DedupeWindowSeconds, now) {
		result.Suppressed++
		p.skip(result, attrs, ReasonDuplicate)
		return
	}

	res := p.dispatch.Send(ctx, p.dispatch.BuildText(msg.SenderName, msg.Text))
	attrs = append(attrs,
		"transport", p.dispatch.TransportName(),
		"status", res.StatusCode,
		"gate_reason", decision.Reason,
	)

	if res.Success {
		p.state.MarkSent(now)
		result.Sent++
		p.logger.Info("message forwarded", append(attrs, "outcome", "sent", "reason", "ok")...)
		return
	}

	p.state.MarkFailed()
	result.Failed++
	p.logger.Warn("message send failed", append(attrs,
		"outcome", "failed",
		"reason", "send_failed",
		"stdout", telemetry.SanitizeOutput(res.Stdout, outputLogLimit),
		"stderr", telemetry.SanitizeOutput(res.Stderr, outputLogLimit),
	)...)
}

func (p *Poller) skip(result *CycleResult, attrs []any, reason string) {
	p.state.MarkSkipped()
	result.Skipped++
	p.logger.Info("message skipped", append(attrs, "outcome", "skipped", "reason", reason)...)
}

// Housekeep prunes expired duplicate entries and persists state
func (p *Poller) Housekeep() int {
	removed := usecase.PruneDuplicates(p.state, p.config.DedupeWindowSeconds, p.now())
	p.logger.Info("housekeeping", "event", "housekeeping", "pruned", removed, "remaining", len(p.state.RecentMessages))
	p.save("housekeeping")
	return removed
}

// save persists state; failures are logged and the in-memory copy stays
// authoritative
func (p *Poller) save(trigger string) {
	p.state.Touch(p.now())
	if err := p.stateRepo.Save(p.state); err != nil {
		p.logger.Error("state save failed", "event", "save", "trigger", trigger, "path", p.stateRepo.Path(), "error", err)
	}
}
