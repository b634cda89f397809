package schema

// LogEvent carries a chunk of interleaved command output. When Replace is
// set the data is a full snapshot and supersedes anything shown so far.
type LogEvent struct {
	Data    string `json:"data"`
	Replace bool   `json:"replace,omitempty"`
}

// ProcessStatusEvent reports a command lifecycle change. ExitCode is only
// set once the process has been waited on; Error is only set when the
// command could not be spawned at all.
type ProcessStatusEvent struct {
	Running  bool   `json:"running"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}
