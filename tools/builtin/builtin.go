// Package builtin assembles the static set of tools of a session.
package builtin

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/browse"
	imagetool "github.com/tutumi2011kt-gif/mulmochat/tools/image"
	"github.com/tutumi2011kt-gif/mulmochat/tools/mapview"
	"github.com/tutumi2011kt-gif/mulmochat/tools/mulmocast"
)

// Deps are the providers used by the tools
type Deps struct {
	Images  imageapi.Generator
	Browser browseapi.Browser

	// BeatConcurrency bounds the beats of a presentation generated at once
	BeatConcurrency int
	// BeatTimeout bounds the image generation of a beat
	BeatTimeout time.Duration
}

// Plugins returns the tools in advertisement order
func Plugins(deps Deps) ([]*tools.Plugin, error) {
	if deps.Images == nil {
		return nil, errors.New("image generator is required")
	}
	if deps.Browser == nil {
		return nil, errors.New("browser is required")
	}

	var list []*tools.Plugin
	for _, fn := range []func() (*tools.Plugin, error){
		func() (*tools.Plugin, error) { return imagetool.NewGenerate(deps.Images) },
		func() (*tools.Plugin, error) { return imagetool.NewEdit(deps.Images) },
		func() (*tools.Plugin, error) { return browse.New(deps.Browser) },
		mapview.New,
		func() (*tools.Plugin, error) {
			return mulmocast.New(mulmocast.Config{
				Generator:   deps.Images,
				Concurrency: deps.BeatConcurrency,
				BeatTimeout: deps.BeatTimeout,
			})
		},
	} {
		p, err := fn()
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// NewRegistry returns the registry of the built-in tools
func NewRegistry(deps Deps) (*tools.Registry, error) {
	list, err := Plugins(deps)
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(list...)
}
