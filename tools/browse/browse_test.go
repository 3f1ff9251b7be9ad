package browse_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/browse"
)

type fakeBrowser struct {
	res *browseapi.Response
	err error
	got []string
}

func (f *fakeBrowser) Browse(_ context.Context, req *browseapi.Request) (*browseapi.Response, error) {
	f.got = append(f.got, req.URL)
	return f.res, f.err
}

func execute(t *testing.T, b browseapi.Browser, args map[string]any) *tools.PluginResult {
	p, err := browse.New(b)
	require.NoError(t, err)
	d := tools.NewDispatcher(tools.MustRegistry(p))

	res, err := d.Execute(context.Background(), tools.NewSessionContext("b1"), browse.ToolName, args)
	require.NoError(t, err)
	return res
}

func TestBrowse(t *testing.T) {
	page := &browseapi.Page{
		Title: "Example Domain",
		URL:   "https://example.com/",
		Text:  "This domain is for use in illustrative examples.",
	}
	b := &fakeBrowser{res: &browseapi.Response{Success: true, Data: page}}

	res := execute(t, b, map[string]any{"url": "https://example.com"})
	assert.Equal(t, "Successfully browsed the webpage", res.Message)
	assert.Equal(t, "Example Domain", res.Title)
	assert.Equal(t, "https://example.com/", res.URL)
	assert.Equal(t, page, res.JSONData)
	assert.Empty(t, res.ImageData)
	assert.Equal(t, []string{"https://example.com"}, b.got)
}

func TestBrowse_Failures(t *testing.T) {
	tcases := []struct {
		name string
		b    *fakeBrowser
		args map[string]any
		exp  string
	}{
		{
			name: "provider error",
			b:    &fakeBrowser{res: &browseapi.Response{Error: "page not found"}},
			args: map[string]any{"url": "https://example.com/x"},
			exp:  "page not found",
		},
		{
			name: "no data",
			b:    &fakeBrowser{res: &browseapi.Response{Success: true}},
			args: map[string]any{"url": "https://example.com/x"},
			exp:  "Failed to browse webpage",
		},
		{
			name: "transport",
			b:    &fakeBrowser{err: errors.New("connection reset")},
			args: map[string]any{"url": "https://example.com/x"},
			exp:  "Failed to browse webpage: connection reset",
		},
		{
			name: "missing url",
			b:    &fakeBrowser{},
			args: map[string]any{},
			exp:  "invalid arguments: url is required",
		},
		{
			name: "wrong type",
			b:    &fakeBrowser{},
			args: map[string]any{"url": 42},
			exp:  "invalid arguments: url must be a string",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			res := execute(t, tc.b, tc.args)
			assert.Equal(t, tc.exp, res.Message)
		})
	}
}
