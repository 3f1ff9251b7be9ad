// Package image provides the generateImage and editImage tools.
package image

import (
	"context"

	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/tools", "image")

const (
	GenerateToolName = "generateImage"
	EditToolName     = "editImage"

	// SucceededMessage is reported when the provider returned an image
	SucceededMessage = "image generation succeeded"
	// FailedMessage is reported when the provider did not return an image
	FailedMessage = "image generation failed"
)

// GenerateRequest is the input of generateImage
type GenerateRequest struct {
	Prompt string `json:"prompt" jsonschema:"description=Description of the desired image" validate:"required"`
}

// EditRequest is the input of editImage
type EditRequest struct {
	Prompt string `json:"prompt" jsonschema:"description=Description of the edits to be made to the image" validate:"required"`
}

// NewGenerate returns the generateImage tool
func NewGenerate(gen imageapi.Generator) (*tools.Plugin, error) {
	return tools.NewPlugin[GenerateRequest](
		GenerateToolName,
		"Generate an image from a text prompt.",
		func(ctx context.Context, sess *tools.SessionContext, req *GenerateRequest) (*tools.PluginResult, error) {
			return Generate(ctx, gen, req.Prompt, nil)
		},
		tools.WithGeneratingMessage("Generating image..."),
		tools.WithWaitingMessage("Tell the user to wait for the image to be generated."),
	)
}

// NewEdit returns the editImage tool.
// The images of the session are sent to the provider with the prompt.
func NewEdit(gen imageapi.Generator) (*tools.Plugin, error) {
	return tools.NewPlugin[EditRequest](
		EditToolName,
		"Edit the previously generated image based on a text prompt.",
		func(ctx context.Context, sess *tools.SessionContext, req *EditRequest) (*tools.PluginResult, error) {
			return Generate(ctx, gen, req.Prompt, sess.Images())
		},
		tools.WithGeneratingMessage("Editing image..."),
	)
}

// Generate calls the provider and maps the response to a result.
// A response without image is reported in the message,
// a provider error is returned.
func Generate(ctx context.Context, gen imageapi.Generator, prompt string, images []string) (*tools.PluginResult, error) {
	if images == nil {
		images = []string{}
	}

	res, err := gen.GenerateImage(ctx, &imageapi.Request{
		Prompt: prompt,
		Images: images,
	})
	if err != nil {
		return nil, tools.WithDefaultHint(err, FailedMessage)
	}

	if b64 := res.Base64(); res.Success && b64 != "" {
		return &tools.PluginResult{
			Message:   SucceededMessage,
			ImageData: b64,
		}, nil
	}

	logger.ContextKV(ctx, xlog.WARNING,
		"status", "no_image",
		"prompt", slices.StringUpto(prompt, 64),
		"message", slices.StringUpto(res.Message, 64),
		"err", res.Error,
	)

	msg := res.Message
	if msg == "" {
		msg = FailedMessage
	}
	return &tools.PluginResult{Message: msg}, nil
}
