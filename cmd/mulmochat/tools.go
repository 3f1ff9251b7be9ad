package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/webfetch"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/builtin"
)

var (
	toolsFormat string
	toolsMap    bool
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool definitions advertised to the model",
	RunE:  runTools,
}

func init() {
	toolsCmd.Flags().StringVarP(&toolsFormat, "format", "f", "json", "Output format: json|yaml")
	toolsCmd.Flags().BoolVar(&toolsMap, "map", false, "Include the tools that require the map key")
}

func runTools(cmd *cobra.Command, _ []string) error {
	// definitions do not depend on the backends
	reg, err := builtin.NewRegistry(builtin.Deps{
		Images:  imageapi.Unavailable{Err: errors.New("not configured")},
		Browser: webfetch.New(webfetch.Config{}),
	})
	if err != nil {
		return err
	}

	var caps tools.Capabilities
	if toolsMap {
		caps = append(caps, tools.CapabilityMapKey)
	}
	defs := reg.ListDefinitions(caps)

	switch toolsFormat {
	case "json":
		fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSONIndent(defs))
	case "yaml":
		fmt.Fprint(cmd.OutOrStdout(), llmutils.ToYAML(defs))
	default:
		return errors.Newf("unsupported format: %s", toolsFormat)
	}
	return nil
}
