package domain

import "time"

// DaemonState is the durable state of the forwarder
type DaemonState struct {
	SentCount       int64              `json:"sentCount"`
	SkippedCount    int64              `json:"skippedCount"`
	FailedCount     int64              `json:"failedCount"`
	RecentMessages  map[string]float64 `json:"recentMessages"` // sender|text -> last seen (unix seconds)
	LastCursor      int64              `json:"lastCursor"`
	LastForwardedAt float64            `json:"lastForwardedAt,omitempty"`
	UpdatedAt       float64            `json:"updatedAt,omitempty"`
}

// NewDaemonState returns an empty state
func NewDaemonState() *DaemonState {
	return &DaemonState{RecentMessages: make(map[string]float64)}
}

// Normalize repairs values that violate state invariants after decoding
func (s *DaemonState) Normalize() {
	if s.RecentMessages == nil {
		s.RecentMessages = make(map[string]float64)
	}
	if s.SentCount < 0 {
		s.SentCount = 0
	}
	if s.SkippedCount < 0 {
		s.SkippedCount = 0
	}
	if s.FailedCount < 0 {
		s.FailedCount = 0
	}
	if s.LastCursor < 0 {
		s.LastCursor = 0
	}
}

// AdvanceCursor moves the cursor forward; it never moves backwards
func (s *DaemonState) AdvanceCursor(cursor int64) bool {
	if cursor <= s.LastCursor {
		return false
	}
	s.LastCursor = cursor
	return true
}

// MarkSent records a successful forward
func (s *DaemonState) MarkSent(now time.Time) {
	s.SentCount++
	s.LastForwardedAt = UnixSeconds(now)
}

// MarkSkipped records a message that was not forwarded by policy
func (s *DaemonState) MarkSkipped() {
	s.SkippedCount++
}

// MarkFailed records a failed send
func (s *DaemonState) MarkFailed() {
	s.FailedCount++
}

// Touch records the time the state was last persisted
func (s *DaemonState) Touch(now time.Time) {
	s.UpdatedAt = UnixSeconds(now)
}

// UnixSeconds converts a time to fractional unix seconds
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
