package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/pkg/retrylimit"
)

const maxBodySize = 1 << 20

// httpBackend is shared by the REST providers: one client, one adaptive
// limiter, retried calls.
type httpBackend struct {
	logger  zerolog.Logger
	client  *http.Client
	limiter *retrylimit.AdaptiveLimiter
}

func newHTTPBackend(logger zerolog.Logger, client *http.Client) httpBackend {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return httpBackend{
		logger:  logger,
		client:  client,
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 0.5, 0.5),
	}
}

// do runs build-and-send with retries and decodes a JSON body into out.
// build is called once per attempt because request bodies are consumed.
func (b httpBackend) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out any) error {
	return retrylimit.WithRetry(ctx, b.logger, func() error {
		req, err := build(ctx)
		if err != nil {
			return retrylimit.Fatal(err)
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &retrylimit.StatusError{Code: resp.StatusCode, Body: errorMessage(body)}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retrylimit.Fatal(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}, b.limiter)
}

// errorMessage pulls {"error": "..."} out of a body, or returns it trimmed.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
