package imageapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
)

func TestNew(t *testing.T) {
	_, err := imageapi.New(imageapi.Config{})
	assert.EqualError(t, err, "image endpoint is required")
}

func TestGenerateImage(t *testing.T) {
	var got imageapi.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		switch got.Prompt {
		case "fail":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"Failed to generate image","details":"quota"}`))
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`upstream is down`))
		case "legacy":
			_, _ = w.Write([]byte(`{"success":true,"image":"data:image/png;base64,QQ=="}`))
		default:
			_, _ = w.Write([]byte(`{"success":true,"imageData":"QQ==","message":"here you go"}`))
		}
	}))
	defer srv.Close()

	c, err := imageapi.New(imageapi.Config{Endpoint: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := c.GenerateImage(ctx, &imageapi.Request{Prompt: "a cat", Images: []string{"Qg=="}})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "QQ==", res.Base64())
		assert.Equal(t, "here you go", res.Message)
		assert.Equal(t, []string{"Qg=="}, got.Images)
	})

	t.Run("legacy", func(t *testing.T) {
		res, err := c.GenerateImage(ctx, &imageapi.Request{Prompt: "legacy"})
		require.NoError(t, err)
		assert.Equal(t, "QQ==", res.Base64())
	})

	t.Run("failed with body", func(t *testing.T) {
		res, err := c.GenerateImage(ctx, &imageapi.Request{Prompt: "fail"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "quota", res.Details)
		assert.Empty(t, res.Base64())
	})

	t.Run("failed without body", func(t *testing.T) {
		_, err := c.GenerateImage(ctx, &imageapi.Request{Prompt: "broken"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502 Bad Gateway: upstream is down")
		assert.Equal(t, []string{"image service is not available"}, errors.GetAllHints(err))
	})
}

func TestGenerateImage_RequestBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, string(raw))
		_, _ = w.Write([]byte(`{"success":true,"imageData":"QQ=="}`))
	}))
	defer srv.Close()

	c, err := imageapi.New(imageapi.Config{Endpoint: srv.URL})
	require.NoError(t, err)

	req := &imageapi.Request{Prompt: "edit", Images: []string{}}
	_, err = c.GenerateImage(context.Background(), req)
	require.NoError(t, err)
	_, err = c.GenerateImage(context.Background(), &imageapi.Request{Prompt: "draw"})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"prompt":"edit","images":[]}`, bodies[0])
	assert.JSONEq(t, `{"prompt":"draw","images":[]}`, bodies[1])
}

func TestUnavailable(t *testing.T) {
	gen := imageapi.Unavailable{Err: errors.New("GEMINI_API_KEY environment variable not set")}
	res, err := gen.GenerateImage(context.Background(), &imageapi.Request{Prompt: "a cat"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "GEMINI_API_KEY environment variable not set", err.Error())
	assert.Equal(t, "image service is not available", errors.FlattenHints(err))
}
