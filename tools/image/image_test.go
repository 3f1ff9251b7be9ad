package image_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
	"github.com/tutumi2011kt-gif/mulmochat/tools/image"
)

type fakeGenerator struct {
	lock     sync.Mutex
	requests []*imageapi.Request
	res      *imageapi.Response
	err      error
}

func (f *fakeGenerator) GenerateImage(_ context.Context, req *imageapi.Request) (*imageapi.Response, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.requests = append(f.requests, req)
	return f.res, f.err
}

func newDispatcher(t *testing.T, gen imageapi.Generator) *tools.Dispatcher {
	generate, err := image.NewGenerate(gen)
	require.NoError(t, err)
	edit, err := image.NewEdit(gen)
	require.NoError(t, err)

	reg, err := tools.NewRegistry(generate, edit)
	require.NoError(t, err)
	return tools.NewDispatcher(reg)
}

func TestDefinitions(t *testing.T) {
	generate, err := image.NewGenerate(&fakeGenerator{})
	require.NoError(t, err)
	assert.Equal(t, "generateImage", generate.Name())
	assert.Equal(t, "Generate an image from a text prompt.", generate.Definition.Description)
	assert.Equal(t, []string{"prompt"}, generate.Definition.Parameters.Required)
	assert.NotEmpty(t, generate.GeneratingMessage)

	edit, err := image.NewEdit(&fakeGenerator{})
	require.NoError(t, err)
	assert.Equal(t, "editImage", edit.Name())
	assert.Equal(t, "Editing image...", edit.GeneratingMessage)
}

func TestGenerateImage(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{res: &imageapi.Response{Success: true, ImageData: "QQ=="}}
	d := newDispatcher(t, gen)
	sess := tools.NewSessionContext("s1")

	res, err := d.Execute(ctx, sess, "generateImage", map[string]any{"prompt": "a red circle"})
	require.NoError(t, err)
	assert.Equal(t, &tools.PluginResult{Message: "image generation succeeded", ImageData: "QQ=="}, res)
	assert.Equal(t, []string{"QQ=="}, sess.Images())

	require.Len(t, gen.requests, 1)
	assert.Equal(t, "a red circle", gen.requests[0].Prompt)
	assert.NotNil(t, gen.requests[0].Images)
	assert.Empty(t, gen.requests[0].Images)
}

func TestEditImage(t *testing.T) {
	ctx := context.Background()

	t.Run("edit first", func(t *testing.T) {
		gen := &fakeGenerator{res: &imageapi.Response{Success: true, ImageData: "Qg=="}}
		d := newDispatcher(t, gen)
		sess := tools.NewSessionContext("s2")

		_, err := d.Execute(ctx, sess, "editImage", map[string]any{"prompt": "make it blue"})
		require.NoError(t, err)
		require.Len(t, gen.requests, 1)
		assert.Equal(t, []string{}, gen.requests[0].Images)
	})

	t.Run("after generate", func(t *testing.T) {
		gen := &fakeGenerator{res: &imageapi.Response{Success: true, ImageData: "QQ=="}}
		d := newDispatcher(t, gen)
		sess := tools.NewSessionContext("s3")

		_, err := d.Execute(ctx, sess, "generateImage", map[string]any{"prompt": "a red circle"})
		require.NoError(t, err)

		gen.res = &imageapi.Response{Success: true, Image: "data:image/png;base64,Qg=="}
		res, err := d.Execute(ctx, sess, "editImage", map[string]any{"prompt": "make it blue"})
		require.NoError(t, err)
		assert.Equal(t, "Qg==", res.ImageData)

		require.Len(t, gen.requests, 2)
		assert.Equal(t, []string{"QQ=="}, gen.requests[1].Images)
		assert.Equal(t, []string{"QQ==", "Qg=="}, sess.Images())
	})
}

func TestGenerateImage_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("provider message", func(t *testing.T) {
		gen := &fakeGenerator{res: &imageapi.Response{Success: false, Message: "the prompt was blocked"}}
		sess := tools.NewSessionContext("f1")
		res, err := newDispatcher(t, gen).Execute(ctx, sess, "generateImage", map[string]any{"prompt": "x"})
		require.NoError(t, err)
		assert.Equal(t, "the prompt was blocked", res.Message)
		assert.Empty(t, res.ImageData)
		assert.Empty(t, sess.Images())
	})

	t.Run("success without payload", func(t *testing.T) {
		gen := &fakeGenerator{res: &imageapi.Response{Success: true}}
		res, err := newDispatcher(t, gen).Execute(ctx, tools.NewSessionContext("f2"), "generateImage", map[string]any{"prompt": "x"})
		require.NoError(t, err)
		assert.Equal(t, "image generation failed", res.Message)
	})

	t.Run("transport", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("connection refused")}
		res, err := newDispatcher(t, gen).Execute(ctx, tools.NewSessionContext("f3"), "generateImage", map[string]any{"prompt": "x"})
		require.NoError(t, err)
		assert.Equal(t, "image generation failed", res.Message)
		assert.Equal(t, tools.DefaultFailureInstructions, res.Instructions)
	})

	t.Run("missing prompt", func(t *testing.T) {
		gen := &fakeGenerator{}
		res, err := newDispatcher(t, gen).Execute(ctx, tools.NewSessionContext("f4"), "generateImage", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "invalid arguments: prompt is required", res.Message)
		assert.Empty(t, gen.requests)
	})
}
