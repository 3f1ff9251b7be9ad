// Package mulmocast provides the pushMulmoScript tool,
// which composes a presentation from beats with one generated image per beat.
package mulmocast

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/fanout"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/tools", "mulmocast")

const (
	ToolName = "pushMulmoScript"

	// Instructions are attached to the composed result
	Instructions = "Acknowledge that the mulmocast operation was completed."

	// DefaultBeatTimeout bounds the image generation of one beat
	DefaultBeatTimeout = 2 * time.Minute
)

// Beat is one content unit of the presentation
type Beat struct {
	Text string `json:"text" jsonschema:"description=The text to be spoken by the presenter\\, which is also used to generate an image" validate:"required"`
}

// Request is the input of pushMulmoScript
type Request struct {
	Title string `json:"title" jsonschema:"description=The title of the presentation" validate:"required"`
	Lang  string `json:"lang" jsonschema:"description=The language of the presentation\\, such as en\\, ja\\, etc." validate:"required"`
	Style Style  `json:"style,omitempty" jsonschema:"description=The visual style of the slide images,enum=corporate,enum=ghibli,enum=watercolor,enum=comic,enum=photorealistic"`
	Beats []Beat `json:"beats" jsonschema:"minItems=1" validate:"required,min=1,dive"`
}

// Config of the tool
type Config struct {
	Generator imageapi.Generator
	// Concurrency bounds the beats generated at once, zero means all
	Concurrency int
	// BeatTimeout bounds each beat, default DefaultBeatTimeout
	BeatTimeout time.Duration
}

// Presenter composes presentations
type Presenter struct {
	gen         imageapi.Generator
	concurrency int
	timeout     time.Duration
}

// NewPresenter returns a Presenter
func NewPresenter(cfg Config) (*Presenter, error) {
	if cfg.Generator == nil {
		return nil, errors.New("image generator is required")
	}
	timeout := cfg.BeatTimeout
	if timeout <= 0 {
		timeout = DefaultBeatTimeout
	}
	return &Presenter{
		gen:         cfg.Generator,
		concurrency: cfg.Concurrency,
		timeout:     timeout,
	}, nil
}

// New returns the pushMulmoScript tool
func New(cfg Config) (*tools.Plugin, error) {
	p, err := NewPresenter(cfg)
	if err != nil {
		return nil, err
	}
	return tools.NewPlugin[Request](
		ToolName,
		"Let MulmoCast to process a given MulmoScript to generate a presentation of a given topic or story.",
		p.Run,
		tools.WithGeneratingMessage("Processing with Mulmocast..."),
		tools.WithWaitingMessage("Tell the user that you are processing with Mulmocast."),
	)
}

// Run generates the beat images concurrently and composes the presentation.
// A beat whose image failed keeps its text without image.
func (p *Presenter) Run(ctx context.Context, sess *tools.SessionContext, req *Request) (*tools.PluginResult, error) {
	doc, err := p.Compose(ctx, req)
	if err != nil {
		return nil, err
	}

	html, err := doc.Render()
	if err != nil {
		return nil, err
	}

	return &tools.PluginResult{
		Message:      fmt.Sprintf("Presentation %q created with %d beats (%d images).", req.Title, len(doc.Beats), doc.Images()),
		Title:        req.Title,
		HTMLData:     html,
		Instructions: Instructions,
	}, nil
}

// Compose returns the document with the beats in input order
func (p *Presenter) Compose(ctx context.Context, req *Request) (*Document, error) {
	style := req.Style.Resolve()
	prompts := make([]string, len(req.Beats))
	for i, beat := range req.Beats {
		prompt, err := style.Prompt(req.Title, req.Lang, beat.Text)
		if err != nil {
			return nil, err
		}
		prompts[i] = prompt
	}

	seed := SeedImage()
	results := fanout.Settle(ctx, len(prompts), func(ctx context.Context, i int) (string, error) {
		res, err := p.gen.GenerateImage(ctx, &imageapi.Request{
			Prompt: prompts[i],
			Images: []string{seed},
		})
		if err != nil {
			return "", err
		}
		b64 := res.Base64()
		if !res.Success || b64 == "" {
			return "", errors.Newf("no image for beat %d: %s", i+1, res.Message)
		}
		return b64, nil
	},
		fanout.WithName(ToolName),
		fanout.WithLimit(p.concurrency),
		fanout.WithTimeout(p.timeout),
	)

	doc := &Document{
		Title: req.Title,
		Lang:  req.Lang,
		Beats: make([]Section, len(req.Beats)),
	}
	for i, beat := range req.Beats {
		doc.Beats[i] = Section{
			Index: i,
			Text:  beat.Text,
		}
		if r := results[i]; r.OK() {
			doc.Beats[i].Image = dataURL(r.Value)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "composed",
		"title", req.Title,
		"style", style,
		"beats", len(doc.Beats),
		"images", doc.Images(),
	)
	return doc, nil
}

func dataURL(b64 string) template.URL {
	return template.URL(llmutils.ImageDataURL(b64)) // #nosec G203 generated image payload
}
