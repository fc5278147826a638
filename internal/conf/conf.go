package conf

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/usecase"
)

// Clamp bounds
const (
	MinPollIntervalSeconds  = 2
	MinGateCacheSeconds     = 1
	MinPresenceTimeout      = 1
	MaxPresenceTimeout      = 15
	MinSendTimeout          = 1
	MaxSendTimeout          = 120
	MinSourcePageSize       = 1
	MaxSourcePageSize       = 1000
	DefaultHousekeepingSpec = "@every 5m"
)

// Transport kinds
const (
	TransportCommand  = "command"
	TransportFeishu   = "feishu"
	TransportTelegram = "telegram"
)

// Config represents the forwarder configuration.
// It is built once at startup and never mutated afterwards.
type Config struct {
	// Forwarding
	Recipient     string
	MessagePrefix string
	IncludeSender bool

	// Gate
	GateMode            domain.GateMode
	GateModeRaw         string
	GateFailOpen        bool
	GateCacheSeconds    int
	RequireUserPresent  bool
	PresenceURL         string
	PresenceToken       string
	PresenceJSONPath    string
	PresenceTimeoutSecs int
	GateModeAliasesFile string

	// Filtering
	AllowedSenders      []string
	DedupeWindowSeconds int
	MaxMessageLength    int
	NoiseSenders        []string
	NoiseIdentifiers    []string

	// Source
	SourceDBPath        string
	SourcePageSize      int
	PollIntervalSeconds int

	// Transport
	Transport            string
	TransportCommand     []string
	TransportErrorMarker string
	SendTimeoutSeconds   int
	Feishu               FeishuConfig
	TelegramBotToken     string

	// Files
	StatePath string
	LockPath  string
	LogPath   string
	LogLevel  string

	HousekeepingSchedule string

	// Warnings collected while loading, logged by the caller once a logger exists
	Warnings []string
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Default returns the built-in configuration
func Default() *Config {
	base := defaultBaseDir()
	return &Config{
		MessagePrefix:        "[WhatsApp]",
		IncludeSender:        true,
		GateMode:             domain.GateModeAlways,
		GateModeRaw:          string(domain.GateModeAlways),
		GateCacheSeconds:     60,
		RequireUserPresent:   true,
		PresenceJSONPath:     "response.vehicle_state.is_user_present",
		PresenceTimeoutSecs:  5,
		AllowedSenders:       []string{},
		DedupeWindowSeconds:  90,
		MaxMessageLength:     1000,
		NoiseSenders:         []string{},
		NoiseIdentifiers:     []string{"status@broadcast"},
		SourceDBPath:         defaultSourceDBPath(),
		SourcePageSize:       200,
		PollIntervalSeconds:  5,
		Transport:            TransportCommand,
		TransportCommand:     []string{"osascript", filepath.Join(base, "send.applescript")},
		TransportErrorMarker: "ERROR",
		SendTimeoutSeconds:   30,
		StatePath:            filepath.Join(base, "state.json"),
		LockPath:             filepath.Join(base, "forwarderd.lock"),
		LogPath:              filepath.Join(base, "logs", "forwarder.jsonl"),
		LogLevel:             "info",
		HousekeepingSchedule: DefaultHousekeepingSpec,
	}
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	return filepath.Join(defaultBaseDir(), "config.json")
}

func defaultBaseDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "msg-forwarder")
}

func defaultSourceDBPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, "Library", "Group Containers",
		"group.net.whatsapp.WhatsApp.shared", "ChatStorage.sqlite")
}

// Load loads configuration from a JSON (or JSONC) file.
// A missing, unreadable or malformed file yields the defaults; individual
// fields with the wrong type are ignored. Load never fails.
func Load(path string) *Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			cfg.warnf("config %s unreadable, using defaults: %v", path, err)
		}
		cfg.finish()
		return cfg
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		cfg.warnf("config %s is not a JSON object, using defaults: %v", path, err)
		cfg.finish()
		return cfg
	}

	cfg.overlay(raw)
	cfg.finish()
	return cfg
}

// ApplyEnv overrides credentials from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FORWARDER_PRESENCE_TOKEN"); v != "" {
		c.PresenceToken = v
	}
	if v := os.Getenv("FEISHU_APP_ID"); v != "" {
		c.Feishu.AppID = v
	}
	if v := os.Getenv("FEISHU_APP_SECRET"); v != "" {
		c.Feishu.AppSecret = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.TelegramBotToken = v
	}
}

func (c *Config) overlay(raw map[string]json.RawMessage) {
	c.getString(raw, "recipient", &c.Recipient)
	c.getString(raw, "messagePrefix", &c.MessagePrefix)
	c.getBool(raw, "includeSender", &c.IncludeSender)

	c.getString(raw, "forwardingGateMode", &c.GateModeRaw)
	c.getBool(raw, "forwardingGateFailOpen", &c.GateFailOpen)
	c.getInt(raw, "forwardingGateCacheSeconds", &c.GateCacheSeconds)
	c.getBool(raw, "requireUserPresent", &c.RequireUserPresent)
	c.getString(raw, "teslaFleetVehicleDataURL", &c.PresenceURL)
	c.getString(raw, "teslaFleetBearerToken", &c.PresenceToken)
	c.getString(raw, "presenceJSONPath", &c.PresenceJSONPath)
	c.getInt(raw, "presenceTimeoutSeconds", &c.PresenceTimeoutSecs)
	c.getString(raw, "gateModeAliasesFile", &c.GateModeAliasesFile)

	c.getStrings(raw, "allowedSenders", &c.AllowedSenders)
	c.getInt(raw, "dedupeWindowSeconds", &c.DedupeWindowSeconds)
	c.getInt(raw, "maxMessageLength", &c.MaxMessageLength)
	c.getStrings(raw, "noiseSenders", &c.NoiseSenders)
	c.getStrings(raw, "noiseIdentifiers", &c.NoiseIdentifiers)

	c.getString(raw, "sourceDBPath", &c.SourceDBPath)
	c.getInt(raw, "sourcePageSize", &c.SourcePageSize)
	c.getInt(raw, "pollIntervalSeconds", &c.PollIntervalSeconds)

	c.getString(raw, "transport", &c.Transport)
	c.getStrings(raw, "transportCommand", &c.TransportCommand)
	c.getString(raw, "transportErrorMarker", &c.TransportErrorMarker)
	c.getInt(raw, "sendTimeoutSeconds", &c.SendTimeoutSeconds)
	c.getString(raw, "feishuAppID", &c.Feishu.AppID)
	c.getString(raw, "feishuAppSecret", &c.Feishu.AppSecret)
	c.getString(raw, "telegramBotToken", &c.TelegramBotToken)

	c.getString(raw, "statePath", &c.StatePath)
	c.getString(raw, "lockPath", &c.LockPath)
	c.getString(raw, "logPath", &c.LogPath)
	c.getString(raw, "logLevel", &c.LogLevel)
	c.getString(raw, "housekeepingSchedule", &c.HousekeepingSchedule)
}

// finish normalizes, clamps and resolves derived values
func (c *Config) finish() {
	c.Recipient = strings.TrimSpace(c.Recipient)

	if c.PollIntervalSeconds < MinPollIntervalSeconds {
		c.PollIntervalSeconds = MinPollIntervalSeconds
	}
	if c.GateCacheSeconds < MinGateCacheSeconds {
		c.GateCacheSeconds = MinGateCacheSeconds
	}
	if c.DedupeWindowSeconds < 0 {
		c.DedupeWindowSeconds = 0
	}
	if c.MaxMessageLength <= 0 {
		c.warnf("maxMessageLength must be positive, using %d", Default().MaxMessageLength)
		c.MaxMessageLength = Default().MaxMessageLength
	}
	c.PresenceTimeoutSecs = clamp(c.PresenceTimeoutSecs, MinPresenceTimeout, MaxPresenceTimeout)
	c.SendTimeoutSeconds = clamp(c.SendTimeoutSeconds, MinSendTimeout, MaxSendTimeout)
	c.SourcePageSize = clamp(c.SourcePageSize, MinSourcePageSize, MaxSourcePageSize)

	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportCommand, TransportFeishu, TransportTelegram:
	default:
		c.warnf("unknown transport %q, using %s", c.Transport, TransportCommand)
		c.Transport = TransportCommand
	}

	if strings.TrimSpace(c.HousekeepingSchedule) == "" {
		c.HousekeepingSchedule = DefaultHousekeepingSpec
	}

	c.SourceDBPath = ExpandHome(c.SourceDBPath)
	c.StatePath = ExpandHome(c.StatePath)
	c.LockPath = ExpandHome(c.LockPath)
	c.LogPath = ExpandHome(c.LogPath)
	c.GateModeAliasesFile = ExpandHome(c.GateModeAliasesFile)
	for i, arg := range c.TransportCommand {
		c.TransportCommand[i] = ExpandHome(arg)
	}

	aliases, err := LoadGateModeAliases(c.GateModeAliasesFile)
	if err != nil {
		c.warnf("gate mode aliases: %v, using built-in table", err)
	}
	mode, ok := aliases.Normalize(c.GateModeRaw)
	if !ok {
		c.warnf("unrecognized forwardingGateMode %q, using %s", c.GateModeRaw, mode)
	}
	c.GateMode = mode
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~"))
}

// PollInterval returns the effective poll interval
func (c *Config) PollInterval() time.Duration {
	return time.Duration(max(MinPollIntervalSeconds, c.PollIntervalSeconds)) * time.Second
}

// ToGateConfig converts to presence gate configuration
func (c *Config) ToGateConfig() usecase.GateConfig {
	return usecase.GateConfig{
		Mode:               c.GateMode,
		FailOpen:           c.GateFailOpen,
		CacheTTL:           time.Duration(max(MinGateCacheSeconds, c.GateCacheSeconds)) * time.Second,
		RequireUserPresent: c.RequireUserPresent,
	}
}

// ToDispatchConfig converts to dispatcher configuration
func (c *Config) ToDispatchConfig() usecase.DispatchConfig {
	return usecase.DispatchConfig{
		Recipient:        c.Recipient,
		Prefix:           c.MessagePrefix,
		IncludeSender:    c.IncludeSender,
		MaxMessageLength: c.MaxMessageLength,
		ErrorMarker:      c.TransportErrorMarker,
		SendTimeout:      time.Duration(c.SendTimeoutSeconds) * time.Second,
	}
}

// ToSourceConfig converts to message source configuration
func (c *Config) ToSourceConfig() usecase.SourceConfig {
	return usecase.SourceConfig{
		PageSize:         c.SourcePageSize,
		NoiseSenders:     c.NoiseSenders,
		NoiseIdentifiers: c.NoiseIdentifiers,
	}
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Config) getString(raw map[string]json.RawMessage, key string, dst *string) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		c.warnf("ignoring %s: expected string", key)
		return
	}
	*dst = s
}

func (c *Config) getBool(raw map[string]json.RawMessage, key string, dst *bool) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		c.warnf("ignoring %s: expected boolean", key)
		return
	}
	*dst = b
}

// getInt accepts integral JSON numbers only; 5.0 is accepted, 5.5 is not
func (c *Config) getInt(raw map[string]json.RawMessage, key string, dst *int) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		c.warnf("ignoring %s: expected integer", key)
		return
	}
	*dst = int(f)
}

func (c *Config) getStrings(raw map[string]json.RawMessage, key string, dst *[]string) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var list []string
	if err := json.Unmarshal(v, &list); err != nil {
		c.warnf("ignoring %s: expected array of strings", key)
		return
	}
	if list == nil {
		list = []string{}
	}
	*dst = list
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
