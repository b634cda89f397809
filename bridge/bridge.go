// Package bridge spawns the UI session child process and collects its
// result through a one-shot handoff file.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"pkt.systems/loopgate/internal/logx"
	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

// Bridge runs feedback sessions in a child process. ExecPath and Args are
// exported so tests can substitute the child.
type Bridge struct {
	// ExecPath is the binary to spawn; defaults to the current executable.
	ExecPath string
	// Args precede the session flags; defaults to the ui subcommand.
	Args []string
	// Env overrides the child environment when non-nil.
	Env []string

	log pslog.Logger
}

// New constructs a bridge spawning this binary's ui subcommand.
func New(logger pslog.Logger) (*Bridge, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	return &Bridge{
		ExecPath: exe,
		Args:     []string{"ui"},
		log:      logx.WithComponent(logger, "bridge"),
	}, nil
}

// Collect runs one feedback session: it spawns the UI child, blocks until
// the child exits, then reads and removes the handoff file. The child owns
// all user interaction; this process only waits.
func (b *Bridge) Collect(ctx context.Context, projectDir, summary string) (schema.FeedbackResult, error) {
	outputFile := filepath.Join(os.TempDir(), fmt.Sprintf("loopgate-feedback-%s.json", uuid.NewString()))

	args := append(append([]string(nil), b.Args...),
		"--project-directory", projectDir,
		"--prompt", summary,
		"--output-file", outputFile,
	)
	cmd := exec.CommandContext(ctx, b.ExecPath, args...)
	if b.Env != nil {
		cmd.Env = b.Env
	}
	// Stdio stays detached: the parent's stdout is the protocol channel
	// and must never see child output.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	log := b.logger().With("project", projectDir, "output_file", outputFile)
	log.Info("ui session starting")
	if err := cmd.Run(); err != nil {
		b.cleanup(outputFile)
		return schema.FeedbackResult{}, fmt.Errorf("ui session: %w", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return schema.FeedbackResult{}, fmt.Errorf("read feedback handoff: %w", err)
	}
	b.cleanup(outputFile)

	var result schema.FeedbackResult
	if err := json.Unmarshal(data, &result); err != nil {
		return schema.FeedbackResult{}, fmt.Errorf("decode feedback handoff: %w", err)
	}
	log.Info("ui session complete", "feedback_len", len(result.InteractiveFeedback))
	return result, nil
}

// cleanup removes the handoff file best-effort; the temp dir is the
// fallback janitor.
func (b *Bridge) cleanup(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		b.logger().Warn("handoff cleanup failed", "path", path, "err", err)
	}
}

func (b *Bridge) logger() pslog.Logger {
	if b.log != nil {
		return b.log
	}
	return pslog.Ctx(context.Background())
}
