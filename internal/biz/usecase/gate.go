package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// Gate reasons
const (
	ReasonAlways              = "always"
	ReasonUserPresent         = "user_present"
	ReasonUserNotPresent      = "user_not_present"
	ReasonPresenceNotRequired = "presence_not_required"
)

// GateConfig contains presence gate configuration
type GateConfig struct {
	Mode               domain.GateMode
	FailOpen           bool
	CacheTTL           time.Duration
	RequireUserPresent bool
}

// GateUsecase decides whether forwarding is currently permitted.
// It is not safe for concurrent use; the poll loop is its only caller.
type GateUsecase struct {
	presenceRepo repo.PresenceRepo
	config       GateConfig
	cache        domain.GateCache
	now          func() time.Time
}

// NewGateUsecase creates a new presence gate usecase
func NewGateUsecase(presenceRepo repo.PresenceRepo, config GateConfig) *GateUsecase {
	return &GateUsecase{
		presenceRepo: presenceRepo,
		config:       config,
		now:          time.Now,
	}
}

// SetClock replaces the time source
func (uc *GateUsecase) SetClock(now func() time.Time) {
	uc.now = now
}

// Evaluate returns the current gate decision, consulting the cache first
func (uc *GateUsecase) Evaluate(ctx context.Context) domain.GateDecision {
	now := uc.now()

	if uc.config.Mode != domain.GateModeGated {
		return domain.GateDecision{Allow: true, Reason: ReasonAlways, CheckedAt: now}
	}

	if cached, ok := uc.cache.Get(now, uc.config.CacheTTL); ok {
		cached.Cached = true
		return cached
	}

	decision := uc.check(ctx)
	decision.CheckedAt = now
	uc.cache.Put(decision)
	return decision
}

// LastDecision returns the most recent evaluated decision, if any
func (uc *GateUsecase) LastDecision() (domain.GateDecision, bool) {
	return uc.cache.Last()
}

func (uc *GateUsecase) check(ctx context.Context) domain.GateDecision {
	if uc.presenceRepo == nil {
		return uc.policy(repo.PresenceMissingConfig)
	}

	present, err := uc.presenceRepo.CheckPresence(ctx)
	if err != nil {
		var perr *repo.PresenceError
		if errors.As(err, &perr) {
			return uc.policy(perr.Category)
		}
		return uc.policy(repo.PresenceNetworkError)
	}

	switch {
	case !uc.config.RequireUserPresent:
		return domain.GateDecision{Allow: false, Reason: ReasonPresenceNotRequired}
	case present:
		return domain.GateDecision{Allow: true, Reason: ReasonUserPresent}
	default:
		return domain.GateDecision{Allow: false, Reason: ReasonUserNotPresent}
	}
}

// policy resolves an upstream failure with the fail-open flag
func (uc *GateUsecase) policy(category string) domain.GateDecision {
	if uc.config.FailOpen {
		return domain.GateDecision{Allow: true, Reason: "fail_open:" + category}
	}
	return domain.GateDecision{Allow: false, Reason: "fail_closed:" + category}
}
