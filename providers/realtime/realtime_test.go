package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutumi2011kt-gif/mulmochat/providers/realtime"
)

func TestNew(t *testing.T) {
	_, err := realtime.New(realtime.Config{})
	assert.ErrorIs(t, err, realtime.ErrNoAPIKey)
}

func TestCreateClientSecret(t *testing.T) {
	var got map[string]any
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/client_secrets", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		if fail.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":"ek_123","expires_at":1760000000}`))
	}))
	defer srv.Close()

	c, err := realtime.New(realtime.Config{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/",
	})
	require.NoError(t, err)

	ctx := context.Background()
	tools := []map[string]any{{"type": "function", "name": "browse"}}
	secret, err := c.CreateClientSecret(ctx, c.Session("be helpful", tools))
	require.NoError(t, err)
	assert.Equal(t, "ek_123", secret.Value)
	assert.Equal(t, time.Unix(1760000000, 0), secret.Expires())

	session := got["session"].(map[string]any)
	assert.Equal(t, "realtime", session["type"])
	assert.Equal(t, realtime.DefaultModel, session["model"])
	assert.Equal(t, "be helpful", session["instructions"])
	assert.Equal(t, map[string]any{"output": map[string]any{"voice": realtime.DefaultVoice}}, session["audio"])
	assert.Len(t, session["tools"], 1)

	fail.Store(true)
	_, err = c.CreateClientSecret(ctx, c.Session("", nil))
	assert.EqualError(t, err, "OpenAI API error: Unauthorized")
}
