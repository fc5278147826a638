package mcp

import (
	"sort"
	"strings"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/infra/lock"
	"github.com/DevRickLin/msg-forwarder/internal/telemetry"
)

// Status is the daemon status snapshot read from disk
type Status struct {
	DaemonRunning   bool   `json:"daemon_running"`
	SentCount       int64  `json:"sent_count"`
	SkippedCount    int64  `json:"skipped_count"`
	FailedCount     int64  `json:"failed_count"`
	LastCursor      int64  `json:"last_cursor"`
	DedupeEntries   int    `json:"dedupe_entries"`
	LastForwardedAt string `json:"last_forwarded_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
	GateMode        string `json:"gate_mode"`
	Transport       string `json:"transport"`
	StatePath       string `json:"state_path"`
}

// ConfigView is the effective configuration with secrets masked
type ConfigView struct {
	Recipient            string   `json:"recipient"`
	MessagePrefix        string   `json:"message_prefix"`
	IncludeSender        bool     `json:"include_sender"`
	GateMode             string   `json:"gate_mode"`
	GateFailOpen         bool     `json:"gate_fail_open"`
	GateCacheSeconds     int      `json:"gate_cache_seconds"`
	RequireUserPresent   bool     `json:"require_user_present"`
	PresenceURL          string   `json:"presence_url,omitempty"`
	PresenceTokenSet     bool     `json:"presence_token_set"`
	AllowedSenders       []string `json:"allowed_senders"`
	DedupeWindowSeconds  int      `json:"dedupe_window_seconds"`
	MaxMessageLength     int      `json:"max_message_length"`
	PollIntervalSeconds  int      `json:"poll_interval_seconds"`
	SourceDBPath         string   `json:"source_db_path"`
	Transport            string   `json:"transport"`
	HousekeepingSchedule string   `json:"housekeeping_schedule"`
	Warnings             []string `json:"warnings,omitempty"`
}

// DuplicateEntry describes one dedupe cache entry without its text
type DuplicateEntry struct {
	Sender      string  `json:"sender"`
	ContentHash string  `json:"content_hash"`
	AgeSeconds  float64 `json:"age_seconds"`
}

// StatusReader reads daemon state and lock status.
// It never writes; the daemon is the state file's only writer.
type StatusReader struct {
	cfg       *conf.Config
	stateRepo repo.StateRepo
	now       func() time.Time
}

// NewStatusReader creates a status reader
func NewStatusReader(cfg *conf.Config, stateRepo repo.StateRepo) *StatusReader {
	return &StatusReader{cfg: cfg, stateRepo: stateRepo, now: time.Now}
}

func (r *StatusReader) statePath() string {
	return r.stateRepo.Path()
}

// Status returns the current snapshot
func (r *StatusReader) Status() Status {
	state := r.stateRepo.Load()
	return Status{
		DaemonRunning:   lock.IsHeld(r.cfg.LockPath),
		SentCount:       state.SentCount,
		SkippedCount:    state.SkippedCount,
		FailedCount:     state.FailedCount,
		LastCursor:      state.LastCursor,
		DedupeEntries:   len(state.RecentMessages),
		LastForwardedAt: formatUnix(state.LastForwardedAt),
		UpdatedAt:       formatUnix(state.UpdatedAt),
		GateMode:        string(r.cfg.GateMode),
		Transport:       r.cfg.Transport,
		StatePath:       r.stateRepo.Path(),
	}
}

// Config returns the masked effective configuration
func (r *StatusReader) Config() ConfigView {
	c := r.cfg
	return ConfigView{
		Recipient:            maskRecipient(c.Recipient),
		MessagePrefix:        c.MessagePrefix,
		IncludeSender:        c.IncludeSender,
		GateMode:             string(c.GateMode),
		GateFailOpen:         c.GateFailOpen,
		GateCacheSeconds:     c.GateCacheSeconds,
		RequireUserPresent:   c.RequireUserPresent,
		PresenceURL:          c.PresenceURL,
		PresenceTokenSet:     c.PresenceToken != "",
		AllowedSenders:       append([]string{}, c.AllowedSenders...),
		DedupeWindowSeconds:  c.DedupeWindowSeconds,
		MaxMessageLength:     c.MaxMessageLength,
		PollIntervalSeconds:  c.PollIntervalSeconds,
		SourceDBPath:         c.SourceDBPath,
		Transport:            c.Transport,
		HousekeepingSchedule: c.HousekeepingSchedule,
		Warnings:             c.Warnings,
	}
}

// Duplicates returns up to limit dedupe entries, newest first, and the total
func (r *StatusReader) Duplicates(limit int) ([]DuplicateEntry, int) {
	if limit <= 0 {
		limit = 20
	}

	state := r.stateRepo.Load()
	now := domain.UnixSeconds(r.now())

	entries := make([]DuplicateEntry, 0, len(state.RecentMessages))
	for key, seen := range state.RecentMessages {
		sender, text := usecase.SplitDedupeKey(key)
		entries = append(entries, DuplicateEntry{
			Sender:      sender,
			ContentHash: telemetry.ContentHash(text),
			AgeSeconds:  now - seen,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AgeSeconds < entries[j].AgeSeconds
	})

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, total
}

func formatUnix(sec float64) string {
	if sec <= 0 {
		return ""
	}
	return time.Unix(0, int64(sec*float64(time.Second))).UTC().Format(time.RFC3339)
}

// maskRecipient keeps the last four characters
func maskRecipient(s string) string {
	r := []rune(s)
	if len(r) <= 4 {
		return s
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}
