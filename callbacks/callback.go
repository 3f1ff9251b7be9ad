package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ tools.Callback = (*Noop)(nil)
	_ tools.Callback = (*Printer)(nil)
	_ tools.Callback = (*PackageLogger)(nil)
	_ tools.Callback = (*Fanout)(nil)
	_ tools.Callback = (*Scratchpad)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []tools.Callback
}

func NewFanout(callbacks ...tools.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback tools.Callback) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnToolStart(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, args map[string]any) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, p, sess, args)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, res *tools.PluginResult) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, p, sess, res)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, p, sess, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, sess *tools.SessionContext, name string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, sess, name)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnToolStart(context.Context, *tools.Plugin, *tools.SessionContext, map[string]any) {}
func (l *Noop) OnToolEnd(context.Context, *tools.Plugin, *tools.SessionContext, *tools.PluginResult) {
}
func (l *Noop) OnToolError(context.Context, *tools.Plugin, *tools.SessionContext, error) {}
func (l *Noop) OnToolNotFound(context.Context, *tools.SessionContext, string)             {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnToolStart(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, args map[string]any) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s (%s)\n", p.Name(), sess.ID)
	if p.GeneratingMessage != "" {
		fmt.Fprintln(l.Out, p.GeneratingMessage)
	}
	fmt.Fprintf(l.Out, "Input: %s\n", llmutils.ToJSON(args))
}

func (l *Printer) OnToolEnd(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, res *tools.PluginResult) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s (%s)\n", p.Name(), sess.ID)
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", res.Message)
	}
}

func (l *Printer) OnToolError(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s (%s): %s\n", p.Name(), sess.ID, err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, sess *tools.SessionContext, name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", name)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnToolStart(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, args map[string]any) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"session", sess.ID,
		"tool", p.Name(),
		"input", slices.StringUpto(llmutils.ToJSON(args), 64),
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, res *tools.PluginResult) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"session", sess.ID,
		"tool", p.Name(),
		"output", slices.StringUpto(res.Message, 64),
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, p *tools.Plugin, sess *tools.SessionContext, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"session", sess.ID,
		"tool", p.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, sess *tools.SessionContext, name string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"session", sess.ID,
		"tool", name,
	)
}
