package repo

import "context"

// TransportOutput is the raw outcome of one send attempt, before classification
type TransportOutput struct {
	StatusCode int // Exit status or API code, 0 means the transport reported success
	Stdout     string
	Stderr     string
}

// Transport is the outbound messaging interface
type Transport interface {
	// Name returns the transport identifier used in logs
	Name() string

	// Send performs exactly one send attempt. A non-nil error means the
	// attempt could not be made or completed (launch failure, timeout).
	Send(ctx context.Context, recipient, text string) (TransportOutput, error)
}
