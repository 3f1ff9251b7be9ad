// Package browse provides the browse tool.
package browse

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/tools", "browse")

const (
	ToolName = "browse"

	SucceededMessage = "Successfully browsed the webpage"
	FailedMessage    = "Failed to browse webpage"
)

// Request is the input of the browse tool
type Request struct {
	URL string `json:"url" jsonschema:"description=The URL of the webpage to browse and extract content from" validate:"required"`
}

// New returns the browse tool
func New(browser browseapi.Browser) (*tools.Plugin, error) {
	return tools.NewPlugin[Request](
		ToolName,
		"Browse and extract content from a web page using the provided URL.",
		func(ctx context.Context, sess *tools.SessionContext, req *Request) (*tools.PluginResult, error) {
			return Browse(ctx, browser, req.URL)
		},
		tools.WithGeneratingMessage("Browsing webpage..."),
		tools.WithWaitingMessage("Tell the user to wait for the webpage to be browsed."),
	)
}

// Browse calls the browser and maps the response to a result
func Browse(ctx context.Context, browser browseapi.Browser, url string) (*tools.PluginResult, error) {
	res, err := browser.Browse(ctx, &browseapi.Request{URL: url})
	if err != nil {
		return nil, tools.WithDefaultHint(err, FailedMessage+": "+err.Error())
	}

	if !res.Success || res.Data == nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "browse_failed",
			"url", url,
			"err", res.Error,
		)
		msg := res.Error
		if msg == "" {
			msg = FailedMessage
		}
		return &tools.PluginResult{Message: msg}, nil
	}

	pageURL := res.Data.URL
	if pageURL == "" {
		pageURL = url
	}
	return &tools.PluginResult{
		Message:  SucceededMessage,
		Title:    res.Data.Title,
		URL:      pageURL,
		JSONData: res.Data,
	}, nil
}
