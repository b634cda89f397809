package mcpserver

// ToolKind is the closed set of tools this server exposes. Dispatch is an
// exhaustive switch over the variants; an unrecognized name maps to
// ToolUnknown and is rejected with invalid params.
type ToolKind int

const (
	// ToolUnknown is any name outside the registry.
	ToolUnknown ToolKind = iota
	// ToolInteractiveFeedback collects human feedback through the browser UI.
	ToolInteractiveFeedback
)

const toolNameInteractiveFeedback = "interactive_feedback"

func toolKindForName(name string) ToolKind {
	switch name {
	case toolNameInteractiveFeedback:
		return ToolInteractiveFeedback
	default:
		return ToolUnknown
	}
}

func toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        toolNameInteractiveFeedback,
			Description: "Ask the human for feedback. Opens a local web UI where the user can run commands in the project and type a response; blocks until the user submits.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"project_directory": {
						Type:        "string",
						Description: "Absolute path to the project the feedback concerns",
					},
					"summary": {
						Type:        "string",
						Description: "Short one-line summary of what the user should review",
					},
				},
				Required: []string{"project_directory", "summary"},
			},
		},
	}
}
