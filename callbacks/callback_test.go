package callbacks_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/tutumi2011kt-gif/mulmochat/callbacks"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	cb := callbacks.NewPrinter(&buf, callbacks.ModeVerbose)
	ctx := context.Background()

	p := &tools.Plugin{
		Definition:        tools.ToolDefinition{Name: "browse"},
		GeneratingMessage: "Browsing webpage...",
	}
	sess := tools.NewSessionContext("sess1")

	cb.OnToolStart(ctx, p, sess, map[string]any{"url": "https://example.com"})
	cb.OnToolEnd(ctx, p, sess, &tools.PluginResult{Message: "Successfully browsed the webpage"})
	cb.OnToolError(ctx, p, sess, errors.New("test error"))
	cb.OnToolNotFound(ctx, sess, "teleport")

	res := buf.String()
	assert.Contains(t, res, "Tool Start: browse (sess1)")
	assert.Contains(t, res, "Browsing webpage...")
	assert.Contains(t, res, `Input: {"url":"https://example.com"}`)
	assert.Contains(t, res, "Tool End: browse (sess1)")
	assert.Contains(t, res, "Output: Successfully browsed the webpage")
	assert.Contains(t, res, "Tool Error: browse (sess1): test error")
	assert.Contains(t, res, "Tool Not Found: teleport")
}

func TestFanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	cb := callbacks.NewFanout(callbacks.NewPrinter(&buf1, callbacks.ModeDefault), callbacks.NewNoop())
	cb.Add(callbacks.NewPrinter(&buf2, callbacks.ModeDefault))
	cb.Add(callbacks.NewPackageLogger(xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "callbacks_test")))

	ctx := context.Background()
	p := &tools.Plugin{Definition: tools.ToolDefinition{Name: "map"}}
	sess := tools.NewSessionContext("sess2")

	cb.OnToolStart(ctx, p, sess, nil)
	cb.OnToolEnd(ctx, p, sess, &tools.PluginResult{Message: "Showing Paris on the map"})
	cb.OnToolError(ctx, p, sess, errors.New("boom"))
	cb.OnToolNotFound(ctx, sess, "teleport")

	for _, buf := range []*bytes.Buffer{&buf1, &buf2} {
		out := buf.String()
		assert.Contains(t, out, "Tool Start: map (sess2)")
		assert.Contains(t, out, "Tool End: map (sess2)")
		assert.NotContains(t, out, "Output:")
		assert.Contains(t, out, "Tool Error: map (sess2): boom")
		assert.Contains(t, out, "Tool Not Found: teleport")
	}
}
