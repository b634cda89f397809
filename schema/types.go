package schema

import "encoding/json"

// FeedbackResult is the payload handed back to the assistant after a
// feedback session completes. It is serialized verbatim into the handoff
// file and into the tool-call result.
type FeedbackResult struct {
	CommandLogs         string `json:"command_logs"`
	InteractiveFeedback string `json:"interactive_feedback"`
}

// SessionConfig holds per-project UI preferences persisted between sessions.
// WindowGeometry is opaque client state; the server stores it untouched.
type SessionConfig struct {
	RunCommand            string          `json:"run_command"`
	ExecuteAutomatically  bool            `json:"execute_automatically"`
	CommandSectionVisible bool            `json:"command_section_visible"`
	WindowGeometry        json.RawMessage `json:"window_geometry,omitempty"`
}

// DefaultSessionConfig returns the config used for projects with no saved state.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RunCommand:            "",
		ExecuteAutomatically:  false,
		CommandSectionVisible: false,
	}
}

// DefaultLogMaxBytes bounds the command log buffer.
const DefaultLogMaxBytes = 1 << 20
