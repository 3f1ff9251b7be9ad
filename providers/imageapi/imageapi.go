// Package imageapi provides the image generation contract
// and a client for the HTTP image service.
package imageapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/providers/internal/httpjson"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/providers", "imageapi")

// ProviderName is used as the metrics tag
const ProviderName = "imageapi"

// Request is the image generation request
type Request struct {
	// Prompt is the text description of the image or of the edits
	Prompt string `json:"prompt"`
	// Images are optional input images, base64 or data URLs.
	// The field is always sent, as an empty list when there are none.
	Images []string `json:"images"`
}

// Response is the image generation response
type Response struct {
	Success bool `json:"success"`
	// ImageData is the base64 encoded image
	ImageData string `json:"imageData,omitempty"`
	// Image is the image as a data URL, returned by older services
	Image   string `json:"image,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// Base64 returns the image payload, if any
func (r *Response) Base64() string {
	if r.ImageData != "" {
		return r.ImageData
	}
	if _, b64, ok := strings.Cut(r.Image, ";base64,"); ok {
		return b64
	}
	return r.Image
}

// Generator generates or edits images
type Generator interface {
	GenerateImage(ctx context.Context, req *Request) (*Response, error)
}

// Config for the HTTP client
type Config struct {
	// Endpoint is the URL of the generate-image service
	Endpoint string
	// Timeout of the request, default 2 minutes
	Timeout time.Duration
	// HTTPClient is optional
	HTTPClient *http.Client
}

// Client calls the HTTP image service
type Client struct {
	endpoint string
	client   *http.Client
}

var _ Generator = (*Client)(nil)

// New returns a Client
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("image endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: cfg.Endpoint,
		client:   client,
	}, nil
}

// GenerateImage posts the request to the image service.
// A non-success response with a JSON body is returned without error.
func (c *Client) GenerateImage(ctx context.Context, req *Request) (*Response, error) {
	body := *req
	if body.Images == nil {
		body.Images = []string{}
	}

	res := new(Response)
	status, err := httpjson.Post(ctx, c.client, ProviderName, c.endpoint, &body, res)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "image_request_failed",
			"endpoint", c.endpoint,
			"code", status,
			"err", err.Error(),
		)
		return nil, errors.WithHint(errors.WithStack(err), "image service is not available")
	}
	if status >= 300 {
		res.Success = false
	}
	return res, nil
}

// Unavailable fails every request with Err,
// it stands in when no image backend is configured.
type Unavailable struct {
	Err error
}

var _ Generator = Unavailable{}

// GenerateImage returns the configuration error
func (u Unavailable) GenerateImage(_ context.Context, _ *Request) (*Response, error) {
	return nil, errors.WithHint(errors.WithStack(u.Err), "image service is not available")
}
