// Package decision queries the external reasoning service that picks which
// translation tool to apply to an incoming record. The client performs no
// translation itself; it sends a single planning request and returns the
// first proposed tool invocation.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/internal/platform/toolbox"
)

// ErrDecisionService covers every failure talking to the reasoning service:
// transport errors, timeouts, non-success statuses and malformed response
// envelopes. It is fatal for the request; there is no retry.
var ErrDecisionService = errors.New("decision service failure")

// Config holds the reasoning-service connection settings.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client is a thin client for an OpenAI-compatible chat-completions
// endpoint used in tool-selection mode.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger
}

// NewClient builds a Client. A zero Timeout falls back to 30 seconds.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Selection is the tool invocation chosen by the reasoning service,
// converted into the dispatcher's input shape. It is untrusted until the
// dispatcher has validated it.
type Selection struct {
	Tool      string
	Arguments map[string]any
}

// Wire types for the chat-completions exchange. The response structs are
// deliberately strict: fields the pipeline depends on are parsed into typed
// values and anything missing fails the request outright rather than being
// fished out of a loose map.

type chatRequest struct {
	Model      string               `json:"model"`
	Messages   []chatMessage        `json:"messages"`
	Tools      []toolbox.Descriptor `json:"tools"`
	ToolChoice string               `json:"tool_choice"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message struct {
		ToolCalls []toolCall `json:"tool_calls"`
	} `json:"message"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// SelectTool sends one planning request naming both formats and a
// serialized view of the payload, together with the tool catalog, and
// returns the first candidate tool call. Additional candidates in the
// response are ignored: the pipeline makes exactly one local invocation per
// request.
func (c *Client) SelectTool(ctx context.Context, sourceFormat, targetFormat string, payload map[string]any, tools []toolbox.Descriptor) (*Selection, error) {
	directive, err := buildDirective(sourceFormat, targetFormat, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing payload: %v", ErrDecisionService, err)
	}

	reqBody := chatRequest{
		Model:      c.cfg.Model,
		Messages:   []chatMessage{{Role: "user", Content: directive}},
		Tools:      tools,
		ToolChoice: "auto",
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrDecisionService, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrDecisionService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecisionService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrDecisionService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: endpoint returned status %d", ErrDecisionService, resp.StatusCode)
	}

	selection, err := parseSelection(body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("tool", selection.Tool).
		Str("model", c.cfg.Model).
		Dur("latency", time.Since(start)).
		Msg("decision service selected tool")

	return selection, nil
}

// parseSelection extracts the first tool call of the first choice. Any
// deviation from the expected envelope is rejected as a decision-service
// failure; there is no best-effort field extraction.
func parseSelection(body []byte) (*Selection, error) {
	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed response envelope: %v", ErrDecisionService, err)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("%w: response carried no choices", ErrDecisionService)
	}
	calls := envelope.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, fmt.Errorf("%w: response carried no tool calls", ErrDecisionService)
	}

	call := calls[0]
	if call.Function.Name == "" {
		return nil, fmt.Errorf("%w: tool call is missing a function name", ErrDecisionService)
	}

	args := make(map[string]any)
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("%w: tool call arguments are not a JSON object: %v", ErrDecisionService, err)
		}
	}

	return &Selection{Tool: call.Function.Name, Arguments: args}, nil
}

// buildDirective renders the planning prompt: both formats by name plus a
// pretty-printed view of the payload.
func buildDirective(sourceFormat, targetFormat string, payload map[string]any) (string, error) {
	formatted, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are a data format translation controller in a healthcare interoperability system.
Your task is to select the correct function to call to translate the following data packet.

- Source Format: %s
- Target Format: %s

Data Packet:
%s

Based on the source and target formats, determine the appropriate function to call from the available tools.`,
		sourceFormat, targetFormat, formatted), nil
}
