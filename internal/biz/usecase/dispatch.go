package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
	"github.com/DevRickLin/msg-forwarder/internal/biz/repo"
)

// Placeholders and markers used when building outbound text
const (
	UnknownSender   = "Unknown"
	NonTextMessage  = "(non-text message)"
	EllipsisMarker  = "…"
	statusLaunchErr = -1
)

// DispatchConfig contains dispatcher configuration
type DispatchConfig struct {
	Recipient        string
	Prefix           string
	IncludeSender    bool
	MaxMessageLength int
	ErrorMarker      string
	SendTimeout      time.Duration
}

// DispatchUsecase builds outbound text and hands it to the transport
type DispatchUsecase struct {
	transport repo.Transport
	config    DispatchConfig
}

// NewDispatchUsecase creates a new dispatcher usecase
func NewDispatchUsecase(transport repo.Transport, config DispatchConfig) *DispatchUsecase {
	return &DispatchUsecase{
		transport: transport,
		config:    config,
	}
}

// TransportName returns the configured transport name
func (uc *DispatchUsecase) TransportName() string {
	if uc.transport == nil {
		return "none"
	}
	return uc.transport.Name()
}

// SanitizeSender trims the sender; an empty sender becomes "Unknown"
func SanitizeSender(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return UnknownSender
	}
	return s
}

// NormalizeText trims the message; an empty message becomes the
// non-text placeholder. The result is untruncated.
func NormalizeText(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return NonTextMessage
	}
	return s
}

// Truncate cuts text to maxLen characters plus an ellipsis marker
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + EllipsisMarker
}

// BuildText assembles "[prefix ][sender: ]content"
func (uc *DispatchUsecase) BuildText(senderRaw, messageRaw string) string {
	return BuildText(senderRaw, messageRaw, uc.config)
}

// BuildText assembles the outbound text for the given configuration
func BuildText(senderRaw, messageRaw string, config DispatchConfig) string {
	content := Truncate(NormalizeText(messageRaw), config.MaxMessageLength)

	var sb strings.Builder
	if prefix := strings.TrimSpace(config.Prefix); prefix != "" {
		sb.WriteString(prefix)
		sb.WriteString(" ")
	}
	if config.IncludeSender {
		sb.WriteString(SanitizeSender(senderRaw))
		sb.WriteString(": ")
	}
	sb.WriteString(content)
	return sb.String()
}

// Send performs one send attempt to the configured recipient and classifies it
func (uc *DispatchUsecase) Send(ctx context.Context, text string) domain.SendResult {
	return uc.SendTo(ctx, uc.config.Recipient, text)
}

// SendTo performs one send attempt and classifies it. Success requires a
// zero status and no error marker in the transport's output.
func (uc *DispatchUsecase) SendTo(ctx context.Context, recipient, text string) domain.SendResult {
	if uc.transport == nil {
		return failure("transport not configured")
	}
	if strings.TrimSpace(recipient) == "" {
		return failure("recipient not configured")
	}

	if uc.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.SendTimeout)
		defer cancel()
	}

	out, err := uc.transport.Send(ctx, recipient, text)
	if err != nil {
		result := failure(fmt.Sprintf("%s send: %v", uc.transport.Name(), err))
		result.Stdout = out.Stdout
		if out.Stderr != "" {
			result.Stderr = out.Stderr + "\n" + result.Stderr
		}
		if out.StatusCode != 0 {
			result.StatusCode = out.StatusCode
		}
		return result
	}

	return domain.SendResult{
		Success:    out.StatusCode == 0 && !containsMarker(out, uc.config.ErrorMarker),
		StatusCode: out.StatusCode,
		Stdout:     out.Stdout,
		Stderr:     out.Stderr,
	}
}

func containsMarker(out repo.TransportOutput, marker string) bool {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(out.Stdout), marker) ||
		strings.Contains(strings.ToLower(out.Stderr), marker)
}

func failure(reason string) domain.SendResult {
	return domain.SendResult{Success: false, StatusCode: statusLaunchErr, Stderr: reason}
}
