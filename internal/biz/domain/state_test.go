package domain

import (
	"testing"
	"time"
)

func TestDaemonState_AdvanceCursor_NeverDecreases(t *testing.T) {
	s := NewDaemonState()

	if !s.AdvanceCursor(10) {
		t.Fatal("Expected cursor to advance from 0 to 10")
	}
	if s.AdvanceCursor(7) {
		t.Error("Expected cursor not to move backwards")
	}
	if s.AdvanceCursor(10) {
		t.Error("Expected equal cursor to be a no-op")
	}
	if s.LastCursor != 10 {
		t.Errorf("Expected cursor 10, got %d", s.LastCursor)
	}
}

func TestDaemonState_Normalize(t *testing.T) {
	s := &DaemonState{SentCount: -3, SkippedCount: -1, FailedCount: -2, LastCursor: -5}
	s.Normalize()

	if s.SentCount != 0 || s.SkippedCount != 0 || s.FailedCount != 0 {
		t.Errorf("Expected counters clamped to zero, got %+v", s)
	}
	if s.LastCursor != 0 {
		t.Errorf("Expected cursor clamped to zero, got %d", s.LastCursor)
	}
	if s.RecentMessages == nil {
		t.Error("Expected recent messages map to be initialized")
	}
}

func TestDaemonState_MarkSent(t *testing.T) {
	s := NewDaemonState()
	now := time.Unix(1700000000, 0)
	s.MarkSent(now)

	if s.SentCount != 1 {
		t.Errorf("Expected sent count 1, got %d", s.SentCount)
	}
	if s.LastForwardedAt != 1700000000 {
		t.Errorf("Expected last forwarded 1700000000, got %v", s.LastForwardedAt)
	}
}
