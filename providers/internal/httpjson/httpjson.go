// Package httpjson posts JSON requests to the downstream provider endpoints.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
)

// MaxResponseSize limits the provider response body
const MaxResponseSize = 64 << 20

// StatusError is returned for a non-success HTTP status
// when the body could not be decoded.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return "provider returned " + e.Status + ": " + e.Body
	}
	return "provider returned " + e.Status
}

// Post sends the request as JSON and decodes the JSON response into res.
// A non-success status with a decodable body returns the status code and no error,
// the provider contracts carry the failure in the body.
func Post(ctx context.Context, client *http.Client, provider, url string, req, res any) (int, error) {
	started := time.Now()
	defer metricskey.PerfProviderCall.MeasureSince(started, provider)

	status, err := post(ctx, client, url, req, res)
	if err != nil {
		metricskey.StatsProviderCallsFailed.IncrCounter(1, provider)
	}
	return status, err
}

func post(ctx context.Context, client *http.Client, url string, req, res any) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode request")
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")

	resp, err := client.Do(hreq)
	if err != nil {
		return 0, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "failed to read response")
	}

	if err = json.Unmarshal(data, res); err != nil {
		if resp.StatusCode >= 300 {
			return resp.StatusCode, &StatusError{
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       slices.StringUpto(string(bytes.TrimSpace(data)), 256),
			}
		}
		return resp.StatusCode, errors.Wrap(err, "failed to decode response")
	}
	return resp.StatusCode, nil
}
