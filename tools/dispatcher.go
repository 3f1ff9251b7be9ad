package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "tools")

// Dispatcher routes a named tool call to its plugin
// and normalizes every outcome into a PluginResult.
type Dispatcher struct {
	registry *Registry
	callback Callback
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithCallback sets the callback handler for dispatch events
func WithCallback(cb Callback) DispatcherOption {
	return func(d *Dispatcher) {
		d.callback = cb
	}
}

// NewDispatcher returns a dispatcher over the registry
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry of the dispatcher
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Execute runs the named tool with the arguments.
//
// Unknown and unavailable tools return a failure result with ErrToolNotFound
// or ErrToolUnavailable. Tool faults are returned as a failure result with
// nil error, so the conversation can continue.
func (d *Dispatcher) Execute(ctx context.Context, sess *SessionContext, name string, args map[string]any) (*PluginResult, error) {
	p, res, err := d.resolve(ctx, sess, name)
	if err != nil {
		return res, err
	}
	return d.run(ctx, sess, p, args), nil
}

// ExecuteJSON is like Execute with arguments as a raw JSON object,
// as delivered by the realtime session.
func (d *Dispatcher) ExecuteJSON(ctx context.Context, sess *SessionContext, name string, raw []byte) (*PluginResult, error) {
	p, res, err := d.resolve(ctx, sess, name)
	if err != nil {
		return res, err
	}
	args, err := ParseArgs(raw)
	if err != nil {
		if d.callback != nil {
			d.callback.OnToolStart(ctx, p, sess, nil)
			d.callback.OnToolError(ctx, p, sess, err)
		}
		return d.failure(ctx, p, err), nil
	}
	return d.run(ctx, sess, p, args), nil
}

func (d *Dispatcher) resolve(ctx context.Context, sess *SessionContext, name string) (*Plugin, *PluginResult, error) {
	if sess == nil {
		return nil, FailureResult("The session is not initialized.", DefaultFailureInstructions),
			errors.New("session context is required")
	}

	p, err := d.registry.Lookup(name)
	if err != nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		if d.callback != nil {
			d.callback.OnToolNotFound(ctx, sess, name)
		}

		available := strings.Join(d.availableNames(sess.Capabilities), ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"session", sess.ID,
			"tool", slices.StringUpto(name, 64),
			"available_tools", available,
		)

		msg := fmt.Sprintf("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", name, available)
		return nil, FailureResult(msg, DefaultFailureInstructions), err
	}

	if !p.Available(sess.Capabilities) {
		metricskey.StatsToolCallsUnavailable.IncrCounter(1, name)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_unavailable",
			"session", sess.ID,
			"tool", name,
			"requires", p.Requires,
		)

		msg := fmt.Sprintf("Tool `%s` is not available in this session.", name)
		return nil, FailureResult(msg, DefaultFailureInstructions), errors.Wrapf(ErrToolUnavailable, "tool %q", name)
	}

	return p, nil, nil
}

func (d *Dispatcher) availableNames(caps Capabilities) []string {
	var names []string
	for _, p := range d.registry.plugins {
		if p.Available(caps) {
			names = append(names, p.Name())
		}
	}
	return names
}

func (d *Dispatcher) run(ctx context.Context, sess *SessionContext, p *Plugin, args map[string]any) *PluginResult {
	name := p.Name()
	if d.callback != nil {
		d.callback.OnToolStart(ctx, p, sess, args)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_call",
		"session", sess.ID,
		"tool", name,
		"args", slices.StringUpto(llmutils.ToJSON(args), 64),
	)

	started := time.Now()
	res, err := invoke(ctx, sess, p, args)
	metricskey.PerfToolCall.MeasureSince(started, name)

	if err == nil && res == nil {
		err = errors.Newf("tool %s returned no result", name)
	}
	if err == nil && res.Message == "" {
		err = errors.Newf("tool %s returned a result without message", name)
	}
	if err != nil {
		if d.callback != nil {
			d.callback.OnToolError(ctx, p, sess, err)
		}
		return d.failure(ctx, p, err)
	}

	if res.ImageData != "" {
		sess.AppendImage(res.ImageData)
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	if d.callback != nil {
		d.callback.OnToolEnd(ctx, p, sess, res)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tool_done",
		"session", sess.ID,
		"tool", name,
		"message", slices.StringUpto(res.Message, 64),
		"images", sess.ImageCount(),
	)
	return res
}

func (d *Dispatcher) failure(ctx context.Context, p *Plugin, err error) *PluginResult {
	metricskey.StatsToolCallsFailed.IncrCounter(1, p.Name())
	logger.ContextKV(ctx, xlog.ERROR,
		"status", "tool_failed",
		"tool", p.Name(),
		"err", err.Error(),
	)

	return FailureResult(
		UserMessage(err),
		values.StringsCoalesce(p.FailureInstructions, DefaultFailureInstructions),
	)
}

func invoke(ctx context.Context, sess *SessionContext, p *Plugin, args map[string]any) (res *PluginResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errors.WithHint(
				errors.Newf("tool %s panicked: %v", p.Name(), r),
				fmt.Sprintf("The %s tool failed unexpectedly.", p.Name()))
		}
	}()
	return p.Execute(ctx, sess, args)
}
