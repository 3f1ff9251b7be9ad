package tools

import "context"

// Callback receives the dispatch events
type Callback interface {
	// OnToolStart is called before the tool runs,
	// the Plugin carries the generating and waiting messages for the client.
	OnToolStart(ctx context.Context, p *Plugin, sess *SessionContext, args map[string]any)
	OnToolEnd(ctx context.Context, p *Plugin, sess *SessionContext, res *PluginResult)
	OnToolError(ctx context.Context, p *Plugin, sess *SessionContext, err error)
	OnToolNotFound(ctx context.Context, sess *SessionContext, name string)
}
