package domain

import "time"

// GateMode is the normalized forwarding gate mode
type GateMode string

const (
	GateModeAlways GateMode = "always"
	GateModeGated  GateMode = "gated"
)

// GateDecision is the result of one gate evaluation
type GateDecision struct {
	Allow     bool
	Reason    string
	Cached    bool
	CheckedAt time.Time
}

// GateCache holds the last evaluated decision (value object, in-memory only)
type GateCache struct {
	decision GateDecision
	valid    bool
}

// Get returns the cached decision if it is younger than ttl
func (c *GateCache) Get(now time.Time, ttl time.Duration) (GateDecision, bool) {
	if !c.valid {
		return GateDecision{}, false
	}
	if now.Sub(c.decision.CheckedAt) >= ttl {
		return GateDecision{}, false
	}
	return c.decision, true
}

// Put stores a decision
func (c *GateCache) Put(d GateDecision) {
	c.decision = d
	c.valid = true
}

// Last returns the most recent decision regardless of age
func (c *GateCache) Last() (GateDecision, bool) {
	return c.decision, c.valid
}
