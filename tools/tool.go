package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/schema"
)

// Capability is a feature negotiated for a session,
// for example a configured map provider key.
type Capability string

const (
	// CapabilityMapKey is present when the map provider key is configured
	CapabilityMapKey Capability = "map_key"
)

// Capabilities is the set of capabilities of a session
type Capabilities []Capability

// Has returns true if the capability is present
func (c Capabilities) Has(cp Capability) bool {
	return slices.Contains(c, cp)
}

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	// Name of the tool, unique and stable
	Name string `json:"name" yaml:"name"`
	// Description to be used in the prompt
	Description string `json:"description" yaml:"description"`
	// Parameters is the JSON schema of the arguments object
	Parameters *jsonschema.Schema `json:"parameters" yaml:"parameters"`
}

// MarshalJSON encodes the definition as a function descriptor
// of the realtime session.
func (d ToolDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string             `json:"type"`
		Name        string             `json:"name"`
		Description string             `json:"description"`
		Parameters  *jsonschema.Schema `json:"parameters"`
	}{
		Type:        "function",
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Parameters,
	})
}

// Validate checks the definition invariants
func (d ToolDefinition) Validate() error {
	if d.Name == "" {
		return errors.Mark(errors.New("tool name is empty"), ErrInvalidDefinition)
	}
	if err := schema.ValidateFunction(d.Parameters); err != nil {
		return errors.Mark(errors.Wrapf(err, "tool %s", d.Name), ErrInvalidDefinition)
	}
	return nil
}

// ExecuteFunc runs the tool with decoded JSON arguments
type ExecuteFunc func(ctx context.Context, sess *SessionContext, args map[string]any) (*PluginResult, error)

// Plugin pairs a ToolDefinition with its implementation
// and presentation hints.
type Plugin struct {
	Definition ToolDefinition
	Execute    ExecuteFunc

	// GeneratingMessage is shown to the user while the tool runs
	GeneratingMessage string
	// WaitingMessage is an optional hint for the model while the tool runs
	WaitingMessage string
	// FailureInstructions replace DefaultFailureInstructions on faults
	FailureInstructions string

	// Requires lists capabilities that must be present in the session
	Requires Capabilities
	// IsEnabled is an optional availability predicate
	IsEnabled func(Capabilities) bool
}

// Name returns the tool name
func (p *Plugin) Name() string {
	return p.Definition.Name
}

// Available returns true if the tool can be used with the capabilities
func (p *Plugin) Available(caps Capabilities) bool {
	for _, req := range p.Requires {
		if !caps.Has(req) {
			return false
		}
	}
	return p.IsEnabled == nil || p.IsEnabled(caps)
}

// Option configures a Plugin
type Option func(*Plugin)

// WithGeneratingMessage sets the message shown while the tool runs
func WithGeneratingMessage(msg string) Option {
	return func(p *Plugin) {
		p.GeneratingMessage = msg
	}
}

// WithWaitingMessage sets the hint for the model while the tool runs
func WithWaitingMessage(msg string) Option {
	return func(p *Plugin) {
		p.WaitingMessage = msg
	}
}

// WithFailureInstructions sets the instructions attached to fault results
func WithFailureInstructions(msg string) Option {
	return func(p *Plugin) {
		p.FailureInstructions = msg
	}
}

// WithRequires sets the required capabilities
func WithRequires(caps ...Capability) Option {
	return func(p *Plugin) {
		p.Requires = append(p.Requires, caps...)
	}
}

// WithEnabled sets the availability predicate
func WithEnabled(fn func(Capabilities) bool) Option {
	return func(p *Plugin) {
		p.IsEnabled = fn
	}
}

// RunFunc runs the tool with a typed request
type RunFunc[I any] func(ctx context.Context, sess *SessionContext, req *I) (*PluginResult, error)

// NewPlugin returns a Plugin with the parameters schema reflected from I.
// The arguments are decoded and validated before run is called.
func NewPlugin[I any](name, description string, run RunFunc[I], opts ...Option) (*Plugin, error) {
	sc, err := schema.New(reflect.TypeOf((*I)(nil)).Elem())
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "tool %s", name), ErrInvalidDefinition)
	}

	p := &Plugin{
		Definition: ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  sc.Parameters,
		},
		Execute: func(ctx context.Context, sess *SessionContext, args map[string]any) (*PluginResult, error) {
			req, err := DecodeArgs[I](args)
			if err != nil {
				return nil, err
			}
			return run(ctx, sess, req)
		},
	}
	for _, opt := range opts {
		opt(p)
	}

	if err = p.Definition.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustPlugin is like NewPlugin but panics on error
func MustPlugin[I any](name, description string, run RunFunc[I], opts ...Option) *Plugin {
	p, err := NewPlugin(name, description, run, opts...)
	if err != nil {
		panic(err)
	}
	return p
}
