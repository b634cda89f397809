package core

import (
	"strings"
	"testing"
)

func TestLogBufferAppend(t *testing.T) {
	buf := newLogBuffer(100)
	buf.Append("hello ")
	buf.Append("world")
	if got := buf.String(); got != "hello world" {
		t.Fatalf("buffer = %q", got)
	}
}

func TestLogBufferTrimsFromFront(t *testing.T) {
	buf := newLogBuffer(10)
	buf.Append(strings.Repeat("a", 8))
	buf.Append("bcdef")
	got := buf.String()
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if !strings.HasSuffix(got, "bcdef") {
		t.Fatalf("newest data lost: %q", got)
	}
}

func TestLogBufferReset(t *testing.T) {
	buf := newLogBuffer(100)
	buf.Append("data")
	buf.Reset()
	if got := buf.String(); got != "" {
		t.Fatalf("buffer after reset = %q", got)
	}
}
