package domain

// IncomingMessage represents one inbound row fetched from the message store
type IncomingMessage struct {
	Cursor     int64  // Ordering key in the store (strictly increasing)
	SenderName string // Display name, may be empty
	Text       string // Raw text, may be empty for media messages
	SenderID   string // Sender routing identifier (noise filtering only)
	ChatID     string // Chat routing identifier (noise filtering only)
}

// MatchesAny reports whether the sender name or either routing identifier
// is contained in the given sets
func (m *IncomingMessage) MatchesAny(senders, identifiers map[string]struct{}) bool {
	if _, ok := senders[m.SenderName]; ok && m.SenderName != "" {
		return true
	}
	if _, ok := identifiers[m.SenderID]; ok && m.SenderID != "" {
		return true
	}
	if _, ok := identifiers[m.ChatID]; ok && m.ChatID != "" {
		return true
	}
	return false
}

// Batch is the result of one fetch from the message source
type Batch struct {
	Messages []IncomingMessage
	// HighWater is the largest cursor observed in the fetched page, including
	// rows dropped as noise. Zero when nothing was fetched.
	HighWater int64
}
