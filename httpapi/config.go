package httpapi

import "time"

// Config controls the UI session HTTP server.
type Config struct {
	// PreferredPort is tried first; the next PortProbeSpan-1 ports follow.
	PreferredPort int
	PortProbeSpan int
	// CloseDelay is how long after an accepted submission the server stays
	// up so the browser can render the confirmation.
	CloseDelay time.Duration
}
