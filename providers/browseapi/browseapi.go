// Package browseapi provides the web page extraction contract
// and a client for the HTTP browse service.
package browseapi

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tutumi2011kt-gif/mulmochat/providers/internal/httpjson"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/providers", "browseapi")

// ProviderName is used as the metrics tag
const ProviderName = "browseapi"

// Request is the browse request
type Request struct {
	URL string `json:"url"`
}

// Page is the readable content extracted from a web page
type Page struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Byline   string `json:"byline,omitempty" yaml:"byline,omitempty"`
	SiteName string `json:"siteName,omitempty" yaml:"siteName,omitempty"`
	Excerpt  string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	// Content is the simplified HTML of the article
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	// Text is the plain text of the article
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Response is the browse response
type Response struct {
	Success bool   `json:"success"`
	Data    *Page  `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Browser fetches a web page and extracts its readable content
type Browser interface {
	Browse(ctx context.Context, req *Request) (*Response, error)
}

// Config for the HTTP client
type Config struct {
	// Endpoint is the URL of the browse service
	Endpoint string
	// Timeout of the request, default 1 minute
	Timeout time.Duration
	// HTTPClient is optional
	HTTPClient *http.Client
}

// Client calls the HTTP browse service
type Client struct {
	endpoint string
	client   *http.Client
}

var _ Browser = (*Client)(nil)

// New returns a Client
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("browse endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
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

// Browse posts the request to the browse service.
// A non-success response with a JSON body is returned without error.
func (c *Client) Browse(ctx context.Context, req *Request) (*Response, error) {
	res := new(Response)
	status, err := httpjson.Post(ctx, c.client, ProviderName, c.endpoint, req, res)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "browse_request_failed",
			"endpoint", c.endpoint,
			"code", status,
			"err", err.Error(),
		)
		return nil, errors.WithHint(errors.WithStack(err), "browse service is not available")
	}
	if status >= 300 {
		res.Success = false
	}
	return res, nil
}
