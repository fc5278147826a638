package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
	"github.com/DevRickLin/msg-forwarder/internal/conf"
	"github.com/DevRickLin/msg-forwarder/internal/infra/lock"
	"github.com/DevRickLin/msg-forwarder/internal/telemetry"
)

// memStateRepo serves a fixed state
type memStateRepo struct {
	state *domain.DaemonState
}

func (m *memStateRepo) Load() *domain.DaemonState { return copyState(m.state) }
func (m *memStateRepo) Save(s *domain.DaemonState) error { m.state = copyState(s); return nil }
func (m *memStateRepo) Path() string { return "/tmp/state.json" }

// copyState deep-copies a state so the fake store never aliases the caller's
func copyState(s *domain.DaemonState) *domain.DaemonState {
	c := *s
	c.RecentMessages = make(map[string]float64, len(s.RecentMessages))
	for k, v := range s.RecentMessages {
		c.RecentMessages[k] = v
	}
	return &c
}

func testConfig(t *testing.T) *conf.Config {
	t.Helper()
	cfg := conf.Default()
	cfg.LockPath = filepath.Join(t.TempDir(), "forwarderd.lock")
	cfg.Recipient = "+15550100"
	cfg.PresenceToken = "secret-token"
	return cfg
}

func testState(now time.Time) *domain.DaemonState {
	s := domain.NewDaemonState()
	s.SentCount = 3
	s.SkippedCount = 2
	s.FailedCount = 1
	s.LastCursor = 77
	s.LastForwardedAt = domain.UnixSeconds(now.Add(-time.Minute))
	s.RecentMessages["Alice|hello"] = domain.UnixSeconds(now.Add(-10 * time.Second))
	s.RecentMessages["Bob|later"] = domain.UnixSeconds(now.Add(-5 * time.Second))
	return s
}

func TestStatusReader_Status(t *testing.T) {
	cfg := testConfig(t)
	r := NewStatusReader(cfg, &memStateRepo{state: testState(time.Now())})

	st := r.Status()
	if st.DaemonRunning {
		t.Error("Expected daemon not running without lock")
	}
	if st.SentCount != 3 || st.SkippedCount != 2 || st.FailedCount != 1 {
		t.Errorf("Unexpected counters: %+v", st)
	}
	if st.LastCursor != 77 || st.DedupeEntries != 2 {
		t.Errorf("Unexpected cursor or dedupe count: %+v", st)
	}
	if st.LastForwardedAt == "" {
		t.Error("Expected last forwarded time")
	}

	g, ok := lock.Acquire(cfg.LockPath)
	if !ok {
		t.Fatal("Expected to acquire lock")
	}
	defer g.Release()

	if !r.Status().DaemonRunning {
		t.Error("Expected daemon running while lock is held")
	}
}

func TestStatusReader_ConfigMasksSecrets(t *testing.T) {
	r := NewStatusReader(testConfig(t), &memStateRepo{state: domain.NewDaemonState()})

	view := r.Config()
	if view.Recipient != "*****0100" {
		t.Errorf("Expected masked recipient, got %q", view.Recipient)
	}
	if !view.PresenceTokenSet {
		t.Error("Expected presence token flag")
	}
}

func TestStatusReader_Duplicates(t *testing.T) {
	now := time.Now()
	r := NewStatusReader(testConfig(t), &memStateRepo{state: testState(now)})
	r.now = func() time.Time { return now }

	entries, total := r.Duplicates(1)
	if total != 2 {
		t.Errorf("Expected total 2, got %d", total)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Sender != "Bob" {
		t.Errorf("Expected newest entry first, got %s", entries[0].Sender)
	}
	if entries[0].ContentHash == "" || entries[0].ContentHash == "later" {
		t.Errorf("Expected content hash, got %q", entries[0].ContentHash)
	}
}

func TestStatusReader_DuplicatesSenderWithSeparator(t *testing.T) {
	now := time.Now()
	state := domain.NewDaemonState()
	state.RecentMessages[usecase.DedupeKey("Team | Ops", "deploy|done")] = domain.UnixSeconds(now)
	r := NewStatusReader(testConfig(t), &memStateRepo{state: state})
	r.now = func() time.Time { return now }

	entries, _ := r.Duplicates(10)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Sender != "Team | Ops" {
		t.Errorf("Expected full sender name, got %q", entries[0].Sender)
	}
	if entries[0].ContentHash != telemetry.ContentHash("deploy|done") {
		t.Errorf("Expected hash of the full text, got %q", entries[0].ContentHash)
	}
}

func TestMaskRecipient(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"1234":      "1234",
		"oc_abcdef": "*****cdef",
	}
	for in, want := range tests {
		if got := maskRecipient(in); got != want {
			t.Errorf("maskRecipient(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServer_StatusTool(t *testing.T) {
	ctx := context.Background()
	srv := NewServer(testConfig(t), &memStateRepo{state: testState(time.Now())}, "test", nil)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "forwarder_status", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("Tool returned error: %+v", res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatal("Expected content")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("Expected text content, got %T", res.Content[0])
	}
	if !strings.Contains(text.Text, `"sent_count":3`) {
		t.Errorf("Expected sent_count in output, got %s", text.Text)
	}
}
