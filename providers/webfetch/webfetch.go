// Package webfetch fetches web pages and extracts their readable content.
package webfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-shiori/go-readability"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/llmutils"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat/providers", "webfetch")

const (
	// ProviderName is used as the metrics tag
	ProviderName = "webfetch"

	// UserAgent is sent with every request
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_2) AppleWebKit/537.36 (KHTML, like Gecko) MulmoChat"

	// DefaultMaxChars limits the extracted text
	DefaultMaxChars = 50000
	// DefaultMaxContentChars limits the simplified HTML
	DefaultMaxContentChars = 200000
	// DefaultMaxBodySize limits the downloaded page
	DefaultMaxBodySize = 10 << 20

	maxRedirects = 5
)

// Config for the Fetcher
type Config struct {
	// Timeout of the request, default 30 seconds
	Timeout time.Duration
	// MaxChars limits the extracted text, default DefaultMaxChars
	MaxChars int
	// MaxContentChars limits the simplified HTML, default DefaultMaxContentChars
	MaxContentChars int
	// HTTPClient is optional
	HTTPClient *http.Client
}

// Fetcher downloads a page and runs readability extraction on it
type Fetcher struct {
	client          *http.Client
	maxChars        int
	maxContentChars int
}

var _ browseapi.Browser = (*Fetcher)(nil)

// New returns a Fetcher
func New(cfg Config) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errors.Newf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	maxContentChars := cfg.MaxContentChars
	if maxContentChars <= 0 {
		maxContentChars = DefaultMaxContentChars
	}
	return &Fetcher{
		client:          client,
		maxChars:        maxChars,
		maxContentChars: maxContentChars,
	}
}

// ValidateURL checks that the URL is http(s) with a host
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Newf("only http/https allowed, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing domain in URL")
	}
	return u, nil
}

// Browse fetches the page.
// Page level failures are reported in the response,
// transport failures are returned as error.
func (f *Fetcher) Browse(ctx context.Context, req *browseapi.Request) (*browseapi.Response, error) {
	u, err := ValidateURL(req.URL)
	if err != nil {
		return &browseapi.Response{
			Error: "URL validation failed: " + err.Error(),
		}, nil
	}

	started := time.Now()
	defer metricskey.PerfProviderCall.MeasureSince(started, ProviderName)

	page, status, err := f.fetch(ctx, u)
	if err != nil {
		metricskey.StatsProviderCallsFailed.IncrCounter(1, ProviderName)
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "fetch_failed",
			"url", req.URL,
			"err", err.Error(),
		)
		return nil, err
	}
	if status >= 300 {
		return &browseapi.Response{
			Error: fmt.Sprintf("failed to fetch page: %d %s", status, http.StatusText(status)),
		}, nil
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "fetched",
		"url", req.URL,
		"title", page.Title,
		"length", len(page.Text),
	)
	return &browseapi.Response{
		Success: true,
		Data:    page,
	}, nil
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL) (*browseapi.Page, int, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to create request")
	}
	hreq.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(hreq)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, DefaultMaxBodySize))
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "failed to read page")
	}

	finalURL := resp.Request.URL
	page := &browseapi.Page{
		URL: finalURL.String(),
	}

	ctype := resp.Header.Get("Content-Type")
	if strings.Contains(ctype, "text/html") || isHTMLPrefix(body) {
		article, err := readability.FromReader(bytes.NewReader(body), finalURL)
		if err != nil {
			return nil, resp.StatusCode, errors.Wrap(err, "failed to parse page")
		}
		page.Title = article.Title
		page.Byline = article.Byline
		page.SiteName = article.SiteName
		page.Excerpt = article.Excerpt
		page.Content = article.Content
		page.Text = strings.TrimSpace(article.TextContent)
	} else {
		page.Text = strings.TrimSpace(string(body))
	}

	page.Text = llmutils.Truncate(page.Text, f.maxChars)
	page.Content = llmutils.Truncate(page.Content, f.maxContentChars)
	return page, resp.StatusCode, nil
}

func isHTMLPrefix(b []byte) bool {
	prefix := strings.ToLower(strings.TrimSpace(string(b[:min(256, len(b))])))
	return strings.HasPrefix(prefix, "<!doctype") || strings.HasPrefix(prefix, "<html")
}
