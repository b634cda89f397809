// Package core supervises the single shell command a feedback session may
// run at a time.
package core

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"pkt.systems/loopgate/schema"
	"pkt.systems/pslog"
)

const stopGrace = 2 * time.Second

// Runner executes at most one shell command at a time inside the project
// directory. Starting a new command preempts the running one. Events are
// delivered through the configured EventSink; sinks must not call back into
// the Runner.
type Runner struct {
	workDir string
	sink    EventSink
	log     pslog.Logger

	// startMu serializes Run and Stop so preemption and startup interleave
	// deterministically.
	startMu sync.Mutex

	mu   sync.Mutex
	buf  *logBuffer
	cmd  *exec.Cmd
	pgid int
	done chan struct{}
}

// NewRunner constructs a runner for the given project directory.
func NewRunner(workDir string, maxLogBytes int, sink EventSink, logger pslog.Logger) *Runner {
	if sink == nil {
		sink = NewFanout()
	}
	return &Runner{
		workDir: workDir,
		sink:    sink,
		log:     logger,
		buf:     newLogBuffer(maxLogBytes),
	}
}

// Run starts a shell command, stopping any running one first. The previous
// command's final processStatus event is delivered before the new command's
// start event. Run returns once the command has been spawned; output and
// completion arrive through the sink.
func (r *Runner) Run(ctx context.Context, command string) error {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return schema.ErrEmptyCommand
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.startMu.Lock()
	defer r.startMu.Unlock()
	r.stopCurrent()

	cmd := shellCommand(trimmed)
	cmd.Dir = r.workDir
	setProcessGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.appendLocked("$ " + trimmed + "\n")
	if err := cmd.Start(); err != nil {
		r.appendLocked("failed to start command: " + err.Error() + "\n")
		r.mu.Unlock()
		r.sink.OnProcessStatus(schema.ProcessStatusEvent{Running: false, Error: err.Error()})
		if r.log != nil {
			r.log.Warn("command start failed", "command", trimmed, "err", err)
		}
		return err
	}
	r.cmd = cmd
	r.pgid = processGroup(cmd)
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	// The start event must be on the wire before the wait goroutine exists,
	// or a command that exits immediately could report its final status first.
	r.sink.OnProcessStatus(schema.ProcessStatusEvent{Running: true})
	if r.log != nil {
		r.log.Info("command started", "command", trimmed, "pid", cmd.Process.Pid)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go r.pump(stdout, &wg)
	go r.pump(stderr, &wg)
	go func() {
		wg.Wait()
		waitErr := cmd.Wait()
		exit := exitCode(waitErr)
		r.mu.Lock()
		r.cmd = nil
		r.pgid = 0
		r.mu.Unlock()
		if r.log != nil {
			r.log.Info("command exited", "command", trimmed, "exit_code", exit)
		}
		r.sink.OnProcessStatus(schema.ProcessStatusEvent{Running: false, ExitCode: &exit})
		close(done)
	}()

	return nil
}

// Stop terminates the running command, if any, and blocks until its final
// status event has been delivered.
func (r *Runner) Stop() {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	r.stopCurrent()
}

// Running reports whether a command is currently live.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cmd != nil
}

// Logs returns the accumulated interleaved output.
func (r *Runner) Logs() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// ClearLogs discards accumulated output and notifies listeners.
func (r *Runner) ClearLogs() {
	r.mu.Lock()
	r.buf.Reset()
	r.mu.Unlock()
	r.sink.OnLog(schema.LogEvent{Data: "", Replace: true})
}

// stopCurrent terminates the live command and waits for its exit event.
// Callers must hold startMu.
func (r *Runner) stopCurrent() {
	r.mu.Lock()
	if r.cmd == nil {
		r.mu.Unlock()
		return
	}
	done := r.done
	r.appendLocked("stopping running command\n")
	r.signalLocked(stopTerm)
	r.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopGrace):
		r.mu.Lock()
		r.signalLocked(stopKill)
		r.mu.Unlock()
		<-done
	}
}

func (r *Runner) signalLocked(sig stopSignal) {
	if r.cmd == nil {
		return
	}
	if err := signalProcess(r.cmd, r.pgid, sig); err != nil && r.log != nil {
		r.log.Warn("command signal failed", "err", err)
	}
}

// appendLocked records a chunk and emits it. Callers must hold mu.
func (r *Runner) appendLocked(chunk string) {
	r.buf.Append(chunk)
	r.sink.OnLog(schema.LogEvent{Data: chunk})
}

func (r *Runner) pump(reader io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			r.mu.Lock()
			r.appendLocked(chunk)
			r.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
