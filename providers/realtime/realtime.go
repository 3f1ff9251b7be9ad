// Package realtime issues ephemeral client secrets for the OpenAI Realtime API.
package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/providers", "realtime")

const (
	// ProviderName is used as the metrics tag
	ProviderName = "realtime"

	DefaultModel = "gpt-realtime"
	DefaultVoice = "shimmer"
)

// ErrNoAPIKey is returned when the API key is not configured
var ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

// Config for the Client
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint
	BaseURL string
	// Model defaults to DefaultModel
	Model string
	// Voice defaults to DefaultVoice
	Voice      string
	MaxRetries int
	HTTPClient *http.Client
}

// SessionConfig describes the realtime session to create
type SessionConfig struct {
	Type  string       `json:"type"`
	Model string       `json:"model"`
	Audio *AudioConfig `json:"audio,omitempty"`
	// Instructions are the system instructions of the session
	Instructions string `json:"instructions,omitempty"`
	// Tools are the function definitions available to the model
	Tools any `json:"tools,omitempty"`
}

// AudioConfig of the session
type AudioConfig struct {
	Output *AudioOutput `json:"output,omitempty"`
}

// AudioOutput of the session
type AudioOutput struct {
	Voice string `json:"voice,omitempty"`
}

// ClientSecret is the ephemeral key issued for a browser session
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// Expires returns the expiration time
func (s *ClientSecret) Expires() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// Client issues the client secrets
type Client struct {
	client openai.Client
	model  string
	voice  string
}

// New returns a Client
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.WithStack(ErrNoAPIKey)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(time.Minute),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := &Client{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		voice:  cfg.Voice,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.voice == "" {
		c.voice = DefaultVoice
	}
	return c, nil
}

// Session returns the default session configuration with the tools
func (c *Client) Session(instructions string, tools any) *SessionConfig {
	return &SessionConfig{
		Type:  "realtime",
		Model: c.model,
		Audio: &AudioConfig{
			Output: &AudioOutput{Voice: c.voice},
		},
		Instructions: instructions,
		Tools:        tools,
	}
}

// CreateClientSecret requests an ephemeral key for the session
func (c *Client) CreateClientSecret(ctx context.Context, session *SessionConfig) (*ClientSecret, error) {
	started := time.Now()
	defer metricskey.PerfProviderCall.MeasureSince(started, ProviderName)

	body := struct {
		Session *SessionConfig `json:"session"`
	}{
		Session: session,
	}

	res := new(ClientSecret)
	err := c.client.Post(ctx, "realtime/client_secrets", body, res)
	if err != nil {
		metricskey.StatsProviderCallsFailed.IncrCounter(1, ProviderName)
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "client_secret",
			"model", session.Model,
			"err", err.Error(),
		)

		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, errors.Newf("OpenAI API error: %s", http.StatusText(apiErr.StatusCode))
		}
		return nil, errors.Wrap(err, "OpenAI API error")
	}
	if res.Value == "" {
		return nil, errors.New("OpenAI API error: empty client secret")
	}
	return res, nil
}
