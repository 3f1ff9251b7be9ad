package tools

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// Registry is the immutable set of plugins known to the process.
type Registry struct {
	plugins []*Plugin
	byName  map[string]*Plugin
	names   []string
}

// NewRegistry returns a registry of the plugins, in the given order.
// It fails on a duplicate name or an invalid definition.
func NewRegistry(plugins ...*Plugin) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Plugin, len(plugins)),
	}
	for _, p := range plugins {
		if p == nil {
			return nil, errors.Mark(errors.New("plugin is nil"), ErrInvalidDefinition)
		}
		if err := p.Definition.Validate(); err != nil {
			return nil, err
		}
		if p.Execute == nil {
			return nil, errors.Mark(errors.Newf("tool %s has no implementation", p.Name()), ErrInvalidDefinition)
		}
		if _, ok := r.byName[p.Name()]; ok {
			return nil, errors.Mark(errors.Newf("tool %s is already registered", p.Name()), ErrDuplicateTool)
		}
		r.byName[p.Name()] = p
		r.plugins = append(r.plugins, p)
		r.names = append(r.names, p.Name())
	}

	logger.KV(xlog.DEBUG, "status", "registry_created", "tools", r.names)
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error
func MustRegistry(plugins ...*Plugin) *Registry {
	r, err := NewRegistry(plugins...)
	if err != nil {
		panic(err)
	}
	return r
}

// ListDefinitions returns the definitions of tools available
// for the capabilities, in registration order.
func (r *Registry) ListDefinitions(caps Capabilities) []ToolDefinition {
	list := make([]ToolDefinition, 0, len(r.plugins))
	for _, p := range r.plugins {
		if p.Available(caps) {
			list = append(list, p.Definition)
		}
	}
	return list
}

// Lookup returns the plugin by its exact name
func (r *Registry) Lookup(name string) (*Plugin, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrToolNotFound, "tool %q", name)
	}
	return p, nil
}

// Names returns the registered tool names, in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Plugins returns the registered plugins, in registration order
func (r *Registry) Plugins() []*Plugin {
	return append([]*Plugin(nil), r.plugins...)
}
