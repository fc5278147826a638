package usecase

import (
	"strings"
	"time"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
)

var senderEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// DedupeKey builds the duplicate cache key "sender|text" for a sender and
// normalized text. Backslashes and "|" in the sender are escaped so the
// first unescaped "|" always ends the sender.
func DedupeKey(sender, normalizedText string) string {
	return senderEscaper.Replace(sender) + "|" + normalizedText
}

// SplitDedupeKey is the inverse of DedupeKey
func SplitDedupeKey(key string) (sender, normalizedText string) {
	var sb strings.Builder
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c == '\\' && i+1 < len(key):
			i++
			sb.WriteByte(key[i])
		case c == '|':
			return sb.String(), key[i+1:]
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), ""
}

// ShouldSuppress reports whether the pair was seen within the window.
// A suppressed message does not refresh the entry; an admitted one records now.
// A zero window disables suppression.
func ShouldSuppress(state *domain.DaemonState, sender, normalizedText string, windowSeconds int, now time.Time) bool {
	if state.RecentMessages == nil {
		state.RecentMessages = make(map[string]float64)
	}

	key := DedupeKey(sender, normalizedText)
	nowSec := domain.UnixSeconds(now)

	if lastSeen, ok := state.RecentMessages[key]; ok && windowSeconds > 0 {
		if nowSec-lastSeen <= float64(windowSeconds) {
			return true
		}
	}

	state.RecentMessages[key] = nowSec
	return false
}

// PruneDuplicates removes entries older than the window and returns how
// many were removed
func PruneDuplicates(state *domain.DaemonState, windowSeconds int, now time.Time) int {
	nowSec := domain.UnixSeconds(now)
	removed := 0
	for key, lastSeen := range state.RecentMessages {
		if nowSec-lastSeen > float64(windowSeconds) {
			delete(state.RecentMessages, key)
			removed++
		}
	}
	return removed
}
