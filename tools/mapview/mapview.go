// Package mapview provides the map tool.
// The tool makes no network call, the client renders the location
// with the map provider key of the session.
package mapview

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

const ToolName = "map"

// Request is the input of the map tool
type Request struct {
	Location string `json:"location" jsonschema:"description=The location name\\, address\\, or place to show on the map (e.g.\\, 'Seattle'\\, 'Paris\\, France'\\, '123 Main St\\, New York')" validate:"required"`
}

// New returns the map tool, available only when the map key is configured
func New() (*tools.Plugin, error) {
	return tools.NewPlugin[Request](
		ToolName,
		"Show a location on a map by providing a location name or address",
		Show,
		tools.WithGeneratingMessage("Loading map..."),
		tools.WithWaitingMessage("Preparing map location..."),
		tools.WithRequires(tools.CapabilityMapKey),
	)
}

// Show returns the location to display
func Show(_ context.Context, _ *tools.SessionContext, req *Request) (*tools.PluginResult, error) {
	loc := strings.TrimSpace(req.Location)
	if loc == "" {
		return nil, errors.Mark(
			errors.WithHint(errors.New("empty location"), "Location parameter is required and must be a string"),
			tools.ErrInvalidArguments)
	}

	return &tools.PluginResult{
		Message:  "Showing " + loc + " on the map",
		Location: tools.ParseLocation(loc),
	}, nil
}
