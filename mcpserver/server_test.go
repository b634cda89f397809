package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"pkt.systems/loopgate/schema"
)

func okFeedback(_ context.Context, projectDir, summary string) (schema.FeedbackResult, error) {
	return schema.FeedbackResult{
		CommandLogs:         "",
		InteractiveFeedback: "dir=" + projectDir + " summary=" + summary,
	}, nil
}

// runServer feeds input lines through the server and returns the decoded
// responses in order.
func runServer(t *testing.T, feedback FeedbackFunc, input string) []JSONRPCResponse {
	t.Helper()
	out := &strings.Builder{}
	srv := NewServer(strings.NewReader(input), out, feedback, nil)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("serve did not finish")
	}

	var responses []JSONRPCResponse
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		var resp JSONRPCResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response line %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestMalformedLineThenKeepServing(t *testing.T) {
	input := "{this is not json\n" +
		`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n"
	responses := runServer(t, okFeedback, input)
	if len(responses) != 2 {
		t.Fatalf("got %d responses, want 2: %+v", len(responses), responses)
	}
	if responses[0].Error == nil || responses[0].Error.Code != codeParseError {
		t.Fatalf("first response = %+v, want -32700", responses[0])
	}
	if responses[0].ID != nil {
		t.Fatalf("parse error id = %v, want null", responses[0].ID)
	}
	if responses[1].Error != nil {
		t.Fatalf("server did not recover: %+v", responses[1])
	}
}

func TestVersionMismatch(t *testing.T) {
	responses := runServer(t, okFeedback, `{"jsonrpc":"1.0","id":1,"method":"tools/list"}`+"\n")
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeInvalidRequest {
		t.Fatalf("responses = %+v, want single -32600", responses)
	}
}

func TestUnknownMethod(t *testing.T) {
	responses := runServer(t, okFeedback, `{"jsonrpc":"2.0","id":7,"method":"resources/list"}`+"\n")
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeMethodNotFound {
		t.Fatalf("responses = %+v, want single -32601", responses)
	}
}

func TestUnknownNotificationIgnored(t *testing.T) {
	responses := runServer(t, okFeedback, `{"jsonrpc":"2.0","method":"something/else"}`+"\n")
	if len(responses) != 0 {
		t.Fatalf("notification produced responses: %+v", responses)
	}
}

func TestInitialize(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"1.0"}}}` + "\n"
	responses := runServer(t, okFeedback, input)
	if len(responses) != 1 || responses[0].Error != nil {
		t.Fatalf("responses = %+v", responses)
	}
	result, err := json.Marshal(responses[0].Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var init InitializeResult
	if err := json.Unmarshal(result, &init); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if init.ProtocolVersion != protocolVersion {
		t.Fatalf("protocolVersion = %q", init.ProtocolVersion)
	}
	if init.ServerInfo.Name != "loopgate" {
		t.Fatalf("server name = %q", init.ServerInfo.Name)
	}
}

func TestToolsListContainsInteractiveFeedback(t *testing.T) {
	responses := runServer(t, okFeedback, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`+"\n")
	if len(responses) != 1 || responses[0].Error != nil {
		t.Fatalf("responses = %+v", responses)
	}
	data, _ := json.Marshal(responses[0].Result)
	var list ToolsListResult
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Tools) != 1 || list.Tools[0].Name != toolNameInteractiveFeedback {
		t.Fatalf("tools = %+v", list.Tools)
	}
	required := list.Tools[0].InputSchema.Required
	if len(required) != 2 {
		t.Fatalf("required = %v", required)
	}
}

func TestUnknownToolRejected(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"rm_rf","arguments":{}}}` + "\n"
	responses := runServer(t, okFeedback, input)
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeInvalidParams {
		t.Fatalf("responses = %+v, want single -32602", responses)
	}
}

func TestToolCallMissingArguments(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"interactive_feedback","arguments":{"summary":"hi"}}}` + "\n"
	responses := runServer(t, okFeedback, input)
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeInvalidParams {
		t.Fatalf("responses = %+v, want single -32602", responses)
	}
}

func TestToolCallNormalizesArguments(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"interactive_feedback","arguments":{"project_directory":"/tmp/p\njunk","summary":"line one\nline two"}}}` + "\n"
	responses := runServer(t, okFeedback, input)
	if len(responses) != 1 || responses[0].Error != nil {
		t.Fatalf("responses = %+v", responses)
	}
	data, _ := json.Marshal(responses[0].Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("content = %+v", result.Content)
	}
	var feedback schema.FeedbackResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &feedback); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if feedback.InteractiveFeedback != "dir=/tmp/p summary=line one" {
		t.Fatalf("feedback = %q", feedback.InteractiveFeedback)
	}
}

func TestHandlerErrorBecomesInternalError(t *testing.T) {
	failing := func(context.Context, string, string) (schema.FeedbackResult, error) {
		return schema.FeedbackResult{}, errors.New("child exited with code 3")
	}
	input := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"interactive_feedback","arguments":{"project_directory":"/p","summary":"s"}}}` + "\n" +
		`{"jsonrpc":"2.0","id":7,"method":"tools/list"}` + "\n"
	responses := runServer(t, failing, input)
	if len(responses) != 2 {
		t.Fatalf("got %d responses: %+v", len(responses), responses)
	}
	if responses[0].Error == nil || responses[0].Error.Code != codeInternalError {
		t.Fatalf("first response = %+v, want -32603", responses[0])
	}
	if responses[1].Error != nil {
		t.Fatalf("loop died after handler error: %+v", responses[1])
	}
}

func TestHandlerPanicRecovered(t *testing.T) {
	panicking := func(context.Context, string, string) (schema.FeedbackResult, error) {
		panic("boom")
	}
	input := `{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"interactive_feedback","arguments":{"project_directory":"/p","summary":"s"}}}` + "\n"
	responses := runServer(t, panicking, input)
	if len(responses) != 1 || responses[0].Error == nil || responses[0].Error.Code != codeInternalError {
		t.Fatalf("responses = %+v, want single -32603", responses)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	reader, writer := io.Pipe()
	defer func() { _ = writer.Close() }()
	srv := NewServer(reader, io.Discard, okFeedback, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop on cancel")
	}
}
