package decision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/internal/platform/toolbox"
)

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-model",
		Timeout:  2 * time.Second,
	}, zerolog.Nop())
}

func toolCallResponse(name, arguments string) string {
	return `{"choices":[{"message":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"` +
		name + `","arguments":` + arguments + `}}]}}]}`
}

func TestSelectTool_Success(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(toolCallResponse("translate_hl7_v2_json_to_fhir_r4",
			`"{\"hl7_data\":{\"patientId\":\"C456\"}}"`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	catalog := toolbox.NewCatalog()
	sel, err := c.SelectTool(context.Background(), "hl7_v2_json", "fhir_r4",
		map[string]any{"patientId": "C456"}, catalog.Descriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel.Tool != "translate_hl7_v2_json_to_fhir_r4" {
		t.Errorf("tool = %q", sel.Tool)
	}
	inner, ok := sel.Arguments["hl7_data"].(map[string]any)
	if !ok || inner["patientId"] != "C456" {
		t.Errorf("arguments = %#v", sel.Arguments)
	}

	// Planning request shape.
	if captured["model"] != "test-model" {
		t.Errorf("model = %v", captured["model"])
	}
	if captured["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v", captured["tool_choice"])
	}
	tools, _ := captured["tools"].([]any)
	if len(tools) != 2 {
		t.Errorf("expected the full catalog in the request, got %d tools", len(tools))
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("expected a single user message, got %d", len(msgs))
	}
	content, _ := msgs[0].(map[string]any)["content"].(string)
	if !strings.Contains(content, "Source Format: hl7_v2_json") ||
		!strings.Contains(content, "Target Format: fhir_r4") {
		t.Errorf("directive does not name both formats:\n%s", content)
	}
}

func TestSelectTool_FirstCandidateOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"tool_calls":[
			{"id":"a","type":"function","function":{"name":"first_tool","arguments":"{}"}},
			{"id":"b","type":"function","function":{"name":"second_tool","arguments":"{}"}}
		]}}]}`))
	}))
	defer srv.Close()

	sel, err := newTestClient(srv.URL).SelectTool(context.Background(), "a", "b", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.Tool != "first_tool" {
		t.Errorf("expected only the first candidate to be honored, got %q", sel.Tool)
	}
}

func TestSelectTool_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SelectTool(context.Background(), "a", "b", nil, nil)
	if !errors.Is(err, ErrDecisionService) {
		t.Fatalf("expected ErrDecisionService, got %v", err)
	}
}

func TestSelectTool_MalformedEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"no choices", `{"choices":[]}`},
		{"no tool calls", `{"choices":[{"message":{"content":"I cannot help with that."}}]}`},
		{"missing name", `{"choices":[{"message":{"tool_calls":[{"id":"x","type":"function","function":{"arguments":"{}"}}]}}]}`},
		{"bad arguments", toolCallResponse("translate_hl7_v2_json_to_fhir_r4", `"not json"`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).SelectTool(context.Background(), "a", "b", nil, nil)
			if !errors.Is(err, ErrDecisionService) {
				t.Errorf("expected ErrDecisionService, got %v", err)
			}
		})
	}
}

func TestSelectTool_ContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(srv.URL).SelectTool(ctx, "a", "b", nil, nil)
	if !errors.Is(err, ErrDecisionService) {
		t.Fatalf("expected ErrDecisionService on cancellation, got %v", err)
	}
}

func TestSelectTool_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(Config{Endpoint: srv.URL, Model: "m", Timeout: 100 * time.Millisecond}, zerolog.Nop())
	_, err := c.SelectTool(context.Background(), "a", "b", nil, nil)
	if !errors.Is(err, ErrDecisionService) {
		t.Fatalf("expected ErrDecisionService on timeout, got %v", err)
	}
}
