package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pkt.systems/loopgate/schema"
)

type recordingSink struct {
	mu       sync.Mutex
	logs     []schema.LogEvent
	statuses []schema.ProcessStatusEvent
	statusCh chan schema.ProcessStatusEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{statusCh: make(chan schema.ProcessStatusEvent, 16)}
}

func (s *recordingSink) OnLog(event schema.LogEvent) {
	s.mu.Lock()
	s.logs = append(s.logs, event)
	s.mu.Unlock()
}

func (s *recordingSink) OnProcessStatus(event schema.ProcessStatusEvent) {
	s.mu.Lock()
	s.statuses = append(s.statuses, event)
	s.mu.Unlock()
	s.statusCh <- event
}

func (s *recordingSink) waitStatus(t *testing.T, running bool) schema.ProcessStatusEvent {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case event := <-s.statusCh:
			if event.Running == running {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for running=%v status", running)
		}
	}
}

func (s *recordingSink) snapshotStatuses() []schema.ProcessStatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.ProcessStatusEvent(nil), s.statuses...)
}

func TestRunEmptyCommand(t *testing.T) {
	runner := NewRunner(t.TempDir(), 0, newRecordingSink(), nil)
	if err := runner.Run(context.Background(), "   "); err != schema.ErrEmptyCommand {
		t.Fatalf("err = %v, want ErrEmptyCommand", err)
	}
}

func TestRunCapturesOutput(t *testing.T) {
	sink := newRecordingSink()
	runner := NewRunner(t.TempDir(), 0, sink, nil)
	if err := runner.Run(context.Background(), "echo hello"); err != nil {
		t.Fatalf("run: %v", err)
	}
	sink.waitStatus(t, true)
	final := sink.waitStatus(t, false)
	if final.ExitCode == nil || *final.ExitCode != 0 {
		t.Fatalf("exit code = %v, want 0", final.ExitCode)
	}
	logs := runner.Logs()
	if !strings.Contains(logs, "$ echo hello") {
		t.Fatalf("logs missing command echo: %q", logs)
	}
	if !strings.Contains(logs, "hello") {
		t.Fatalf("logs missing output: %q", logs)
	}
}

func TestPreemptionEmitsStopBeforeStart(t *testing.T) {
	sink := newRecordingSink()
	runner := NewRunner(t.TempDir(), 0, sink, nil)
	if err := runner.Run(context.Background(), "sleep 30"); err != nil {
		t.Fatalf("run first: %v", err)
	}
	sink.waitStatus(t, true)
	if err := runner.Run(context.Background(), "echo second"); err != nil {
		t.Fatalf("run second: %v", err)
	}
	sink.waitStatus(t, true)
	sink.waitStatus(t, false)

	statuses := sink.snapshotStatuses()
	// first start, first stop, second start, second stop
	if len(statuses) < 4 {
		t.Fatalf("got %d status events, want at least 4: %+v", len(statuses), statuses)
	}
	if !statuses[0].Running || statuses[1].Running {
		t.Fatalf("first command lifecycle out of order: %+v", statuses)
	}
	if !statuses[2].Running {
		t.Fatalf("second command started before first stopped: %+v", statuses)
	}
	if !strings.Contains(runner.Logs(), "second") {
		t.Fatalf("second command output missing: %q", runner.Logs())
	}
}

func TestStartEventPrecedesExitEvent(t *testing.T) {
	// A command that exits instantly must still report running:true first.
	for i := 0; i < 25; i++ {
		sink := newRecordingSink()
		runner := NewRunner(t.TempDir(), 0, sink, nil)
		if err := runner.Run(context.Background(), "true"); err != nil {
			t.Fatalf("run: %v", err)
		}
		sink.waitStatus(t, false)
		statuses := sink.snapshotStatuses()
		if len(statuses) != 2 {
			t.Fatalf("got %d status events, want 2: %+v", len(statuses), statuses)
		}
		if !statuses[0].Running || statuses[1].Running {
			t.Fatalf("status order wrong: %+v", statuses)
		}
	}
}

func TestStopTerminatesCommand(t *testing.T) {
	sink := newRecordingSink()
	runner := NewRunner(t.TempDir(), 0, sink, nil)
	if err := runner.Run(context.Background(), "sleep 30"); err != nil {
		t.Fatalf("run: %v", err)
	}
	sink.waitStatus(t, true)
	runner.Stop()
	if runner.Running() {
		t.Fatalf("runner still reports running after Stop")
	}
	final := sink.waitStatus(t, false)
	if final.ExitCode == nil {
		t.Fatalf("final status missing exit code: %+v", final)
	}
}

func TestClearLogs(t *testing.T) {
	sink := newRecordingSink()
	runner := NewRunner(t.TempDir(), 0, sink, nil)
	if err := runner.Run(context.Background(), "echo data"); err != nil {
		t.Fatalf("run: %v", err)
	}
	sink.waitStatus(t, true)
	sink.waitStatus(t, false)
	runner.ClearLogs()
	if got := runner.Logs(); got != "" {
		t.Fatalf("logs after clear = %q", got)
	}
	sink.mu.Lock()
	last := sink.logs[len(sink.logs)-1]
	sink.mu.Unlock()
	if !last.Replace || last.Data != "" {
		t.Fatalf("clear event = %+v, want empty replace", last)
	}
}
