// Package gemini implements image generation with the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"google.golang.org/genai"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/providers", "gemini")

const (
	// ProviderName is used as the metrics tag
	ProviderName = "gemini"
	// DefaultModel is the image capable model
	DefaultModel = "gemini-2.5-flash-image-preview"
)

// ErrNoAPIKey is returned when the API key is not configured
var ErrNoAPIKey = errors.New("GEMINI_API_KEY environment variable not set")

// Config for the Generator
type Config struct {
	APIKey string
	// Model defaults to DefaultModel
	Model string
	// BaseURL overrides the API endpoint
	BaseURL    string
	HTTPClient *http.Client
}

// Generator generates and edits images with a Gemini model
type Generator struct {
	client *genai.Client
	model  string
}

var _ imageapi.Generator = (*Generator)(nil)

// New returns a Generator
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, errors.WithStack(ErrNoAPIKey)
	}

	ccfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		ccfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, ccfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		client: client,
		model:  model,
	}, nil
}

// Model returns the model name
func (g *Generator) Model() string {
	return g.model
}

// GenerateImage sends the prompt and the input images to the model.
// The last text part of the answer becomes the message,
// and the last inline image becomes the image data.
func (g *Generator) GenerateImage(ctx context.Context, req *imageapi.Request) (*imageapi.Response, error) {
	if req.Prompt == "" {
		return nil, errors.New("prompt is required")
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for i, img := range req.Images {
		mime, data, err := llmutils.DecodeImage(img)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
	}

	started := time.Now()
	defer metricskey.PerfProviderCall.MeasureSince(started, ProviderName)

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		})
	if err != nil {
		metricskey.StatsProviderCallsFailed.IncrCounter(1, ProviderName)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "generate_content",
			"model", g.model,
			"err", err.Error(),
		)
		return nil, errors.Wrap(err, "Failed to generate image")
	}

	res := new(imageapi.Response)
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				res.Message = part.Text
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				res.Success = true
				res.ImageData = base64.StdEncoding.EncodeToString(part.InlineData.Data)
			}
		}
	}
	if res.Message == "" {
		if res.Success {
			res.Message = "image generation succeeded"
		} else {
			res.Message = "no image data found in response"
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "generated",
		"model", g.model,
		"prompt", slices.StringUpto(req.Prompt, 64),
		"inputs", len(req.Images),
		"success", res.Success,
	)
	return res, nil
}
