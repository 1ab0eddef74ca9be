// Package toolbox maintains the catalog of registered translation tools and
// dispatches tool selections made by the external reasoning service.
//
// The catalog is built once at startup and never mutated afterwards; it is
// safe for concurrent use by any number of request handlers. Dispatch is the
// trust boundary between an untrusted external suggestion and local code:
// the selected tool name and arguments are treated as attacker-influenceable
// input, never as a safe function pointer.
package toolbox

import (
	"errors"
	"fmt"

	"github.com/wah4pc/interop/internal/platform/fhir"
)

var (
	// ErrUnknownTool means the selection names a capability outside the
	// catalog. The named tool is never invoked.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrArgumentMismatch means the selection's argument keys do not exactly
	// match the tool's declared required parameters.
	ErrArgumentMismatch = errors.New("tool argument mismatch")

	// ErrMalformedSource means the source payload is missing required keys
	// or is structurally wrong for the selected tool.
	ErrMalformedSource = errors.New("malformed source data")
)

// Descriptor is the function-tool definition advertised to the reasoning
// service, in the chat-completions tools wire shape.
type Descriptor struct {
	Type     string             `json:"type"`
	Function FunctionDescriptor `json:"function"`
}

// FunctionDescriptor names a callable capability and its parameter contract.
type FunctionDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is the JSON Schema object describing a tool's parameters.
type ParameterSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes a single parameter.
type PropertySchema struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// TranslateFunc is a pure mapping from an opaque source payload to the
// canonical Patient resource. Implementations return ErrMalformedSource
// (wrapped) on bad input and never panic.
type TranslateFunc func(source map[string]any) (*fhir.Patient, error)

// Tool pairs a descriptor with its local implementation. ParamName is the
// single required parameter the reasoning service must bind the payload to.
type Tool struct {
	Descriptor Descriptor
	ParamName  string
	Translate  TranslateFunc
}

// Selection is a tool invocation proposed by the reasoning service. It is
// untrusted until Dispatch has validated it.
type Selection struct {
	Tool      string
	Arguments map[string]any
}

// Catalog is an immutable mapping from tool name to capability.
type Catalog struct {
	tools map[string]Tool
	order []string
}

// NewCatalog builds the fixed catalog of translation tools.
func NewCatalog() *Catalog {
	c := &Catalog{tools: make(map[string]Tool)}
	c.register(HL7Tool)
	c.register(CustomV1Tool)
	return c
}

func (c *Catalog) register(t Tool) {
	name := t.Descriptor.Function.Name
	if _, dup := c.tools[name]; dup {
		panic(fmt.Sprintf("toolbox: duplicate tool %q", name))
	}
	c.tools[name] = t
	c.order = append(c.order, name)
}

// Descriptors returns the tool definitions in registration order, ready to
// be serialized into a planning request.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name].Descriptor)
	}
	return out
}

// Names returns the registered tool names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Dispatch validates a selection and invokes the chosen tool.
//
//  1. A name outside the catalog is rejected with ErrUnknownTool before any
//     invocation happens.
//  2. The argument keys must exactly match the tool's declared required
//     parameter, and the bound value must be an object.
//  3. Only then is the tool invoked with the bound payload.
func (c *Catalog) Dispatch(sel Selection) (*fhir.Patient, error) {
	tool, ok := c.tools[sel.Tool]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a registered capability", ErrUnknownTool, sel.Tool)
	}

	if len(sel.Arguments) != 1 {
		return nil, fmt.Errorf("%w: tool %q takes exactly one argument %q, got %d keys",
			ErrArgumentMismatch, sel.Tool, tool.ParamName, len(sel.Arguments))
	}
	raw, ok := sel.Arguments[tool.ParamName]
	if !ok {
		return nil, fmt.Errorf("%w: tool %q requires argument %q",
			ErrArgumentMismatch, sel.Tool, tool.ParamName)
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: argument %q must be an object",
			ErrArgumentMismatch, tool.ParamName)
	}

	return tool.Translate(payload)
}

// getString extracts a string value from a source payload. The second return
// is false when the key is absent or not a string.
func getString(source map[string]any, key string) (string, bool) {
	v, ok := source[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// optionalString returns the value for key when present and a string, and
// "" otherwise. Non-string values for optional keys are treated as absent.
func optionalString(source map[string]any, key string) string {
	s, _ := getString(source, key)
	return s
}
