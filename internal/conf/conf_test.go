package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.json"))
	def := Default()

	if cfg.PollIntervalSeconds != def.PollIntervalSeconds {
		t.Errorf("Expected default poll interval %d, got %d", def.PollIntervalSeconds, cfg.PollIntervalSeconds)
	}
	if cfg.GateMode != domain.GateModeAlways {
		t.Errorf("Expected always mode, got %s", cfg.GateMode)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("Expected no warnings for a missing file, got %v", cfg.Warnings)
	}
}

func TestLoad_MalformedFileReturnsDefaults(t *testing.T) {
	path := writeFile(t, "config.json", "{not json")
	cfg := Load(path)

	if cfg.DedupeWindowSeconds != 90 {
		t.Errorf("Expected default dedupe window, got %d", cfg.DedupeWindowSeconds)
	}
	if len(cfg.Warnings) == 0 {
		t.Error("Expected a warning for malformed config")
	}
}

func TestLoad_OverlaysKnownFieldsAndIgnoresBadOnes(t *testing.T) {
	path := writeFile(t, "config.json", `{
		// comments are allowed
		"recipient": "  +15550001111  ",
		"messagePrefix": "",
		"includeSender": false,
		"forwardingGateMode": "tesla_fleet",
		"forwardingGateFailOpen": true,
		"allowedSenders": ["Alice", "Bob"],
		"dedupeWindowSeconds": "lots",
		"maxMessageLength": 50,
		"unknownField": 42,
		"teslaFleetBearerToken": "tok",
	}`)
	cfg := Load(path)

	if cfg.Recipient != "+15550001111" {
		t.Errorf("Expected trimmed recipient, got %q", cfg.Recipient)
	}
	if cfg.MessagePrefix != "" {
		t.Errorf("Expected empty prefix, got %q", cfg.MessagePrefix)
	}
	if cfg.IncludeSender {
		t.Error("Expected includeSender false")
	}
	if cfg.GateMode != domain.GateModeGated {
		t.Errorf("Expected gated mode, got %s", cfg.GateMode)
	}
	if !cfg.GateFailOpen {
		t.Error("Expected fail open")
	}
	if len(cfg.AllowedSenders) != 2 {
		t.Errorf("Expected 2 allowed senders, got %v", cfg.AllowedSenders)
	}
	if cfg.DedupeWindowSeconds != 90 {
		t.Errorf("Expected ill-typed dedupe window to be ignored, got %d", cfg.DedupeWindowSeconds)
	}
	if cfg.MaxMessageLength != 50 {
		t.Errorf("Expected max length 50, got %d", cfg.MaxMessageLength)
	}
	if cfg.PresenceToken != "tok" {
		t.Errorf("Expected token from file, got %q", cfg.PresenceToken)
	}
}

func TestLoad_ClampsNumericFields(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"pollIntervalSeconds": 0,
		"forwardingGateCacheSeconds": -10,
		"dedupeWindowSeconds": -1,
		"maxMessageLength": 0,
		"presenceTimeoutSeconds": 99,
		"sourcePageSize": 100000
	}`)
	cfg := Load(path)

	if cfg.PollIntervalSeconds != MinPollIntervalSeconds {
		t.Errorf("Expected poll interval clamped to %d, got %d", MinPollIntervalSeconds, cfg.PollIntervalSeconds)
	}
	if cfg.GateCacheSeconds != MinGateCacheSeconds {
		t.Errorf("Expected cache TTL clamped to %d, got %d", MinGateCacheSeconds, cfg.GateCacheSeconds)
	}
	if cfg.DedupeWindowSeconds != 0 {
		t.Errorf("Expected dedupe window clamped to 0, got %d", cfg.DedupeWindowSeconds)
	}
	if cfg.MaxMessageLength != 1000 {
		t.Errorf("Expected max length reset to default, got %d", cfg.MaxMessageLength)
	}
	if cfg.PresenceTimeoutSecs != MaxPresenceTimeout {
		t.Errorf("Expected presence timeout clamped to %d, got %d", MaxPresenceTimeout, cfg.PresenceTimeoutSecs)
	}
	if cfg.SourcePageSize != MaxSourcePageSize {
		t.Errorf("Expected page size clamped to %d, got %d", MaxSourcePageSize, cfg.SourcePageSize)
	}
}

func TestPollInterval_NeverBelowMinimum(t *testing.T) {
	for _, v := range []int{-100, -1, 0, 1, 2, 3, 60} {
		cfg := Default()
		cfg.PollIntervalSeconds = v
		if got := cfg.PollInterval().Seconds(); got < MinPollIntervalSeconds {
			t.Errorf("poll interval %d produced %v, below minimum", v, got)
		}
	}
}

func TestLoad_UnknownGateModeFallsBackToAlways(t *testing.T) {
	path := writeFile(t, "config.json", `{"forwardingGateMode": "sometimes"}`)
	cfg := Load(path)

	if cfg.GateMode != domain.GateModeAlways {
		t.Errorf("Expected always, got %s", cfg.GateMode)
	}
	if len(cfg.Warnings) == 0 {
		t.Error("Expected a warning for unknown gate mode")
	}
}

func TestLoad_UnknownTransportFallsBackToCommand(t *testing.T) {
	path := writeFile(t, "config.json", `{"transport": "pigeon"}`)
	cfg := Load(path)

	if cfg.Transport != TransportCommand {
		t.Errorf("Expected command transport, got %s", cfg.Transport)
	}
}

func TestApplyEnv_OverridesCredentials(t *testing.T) {
	t.Setenv("FORWARDER_PRESENCE_TOKEN", "env-token")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	cfg := Default()
	cfg.PresenceToken = "file-token"
	cfg.ApplyEnv()

	if cfg.PresenceToken != "env-token" {
		t.Errorf("Expected env token, got %q", cfg.PresenceToken)
	}
	if cfg.TelegramBotToken != "bot-token" {
		t.Errorf("Expected telegram token, got %q", cfg.TelegramBotToken)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandHome = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("Expected absolute path unchanged, got %q", got)
	}
}
