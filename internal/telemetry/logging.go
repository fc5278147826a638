// Package telemetry builds the forwarder's structured logger.
package telemetry

import (
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// NewLogger returns a JSON logger writing to logPath and, unless quiet, to stdout.
// Every record carries the program name under "app"; components add their
// own "component" attribute. The returned closer closes the log file.
func NewLogger(logPath, level, program string, quiet bool) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = file
	if !quiet {
		w = io.MultiWriter(os.Stdout, file)
	}
	return slog.New(NewHandler(w, level)).With("app", program), file, nil
}

// NewHandler returns the JSON handler with timestamp renaming and redaction
func NewHandler(w io.Writer, level string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if shouldRedactKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			if a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, Redact(a.Value.String()))
			}
			return a
		},
	})
}

// ParseLevel maps a level name to a slog level; unknown names mean info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shouldRedactKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if lower == "" {
		return false
	}
	for _, token := range []string{"token", "secret", "password", "authorization", "api_key", "apikey", "bearer"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

var bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)

// Redact masks bearer credentials embedded in free text
func Redact(v string) string {
	if !strings.Contains(strings.ToLower(v), "bearer") {
		return v
	}
	return bearerPattern.ReplaceAllString(v, "Bearer [REDACTED]")
}

// ContentHash returns a short blake3 digest of message content, so log lines
// can correlate messages without carrying their text
func ContentHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

// ContentAttrs returns the hash and character length attributes for text
func ContentAttrs(text string) []any {
	return []any{
		"content_hash", ContentHash(text),
		"content_len", utf8.RuneCountInString(text),
	}
}

// SanitizeOutput flattens transport output to a single bounded line
func SanitizeOutput(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if limit > 0 && utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit]) + "..."
	}
	return Redact(s)
}
