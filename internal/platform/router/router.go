// Package router delivers validated Patient resources to the destination
// facility named by the request. Delivery is best-effort by configuration:
// a facility the registry does not know, or one without an endpoint, is
// skipped without failing the request. Once a delivery is attempted,
// transport failures are fatal for the request.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/wah4pc/interop/internal/platform/fhir"
	"github.com/wah4pc/interop/internal/platform/registry"
)

// ErrTransport means a delivery was attempted and failed: connection error,
// timeout, or a non-success status from the destination.
var ErrTransport = errors.New("facility delivery failure")

// Router forwards translated resources to registered facilities.
type Router struct {
	registry *registry.Registry
	client   *http.Client
	logger   zerolog.Logger
	timeout  time.Duration
}

// New builds a Router. A zero timeout falls back to 30 seconds.
func New(reg *registry.Registry, timeout time.Duration, logger zerolog.Logger) *Router {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Router{
		registry: reg,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		timeout:  timeout,
	}
}

// Forward delivers the resource to the target facility's endpoint.
//
// A target that is not in the registry, or that has no api_endpoint, is a
// configuration gap, not a failure: Forward logs it and returns nil. Every
// error after that point wraps ErrTransport. The request id is propagated
// in the X-Request-ID header so the destination can correlate and
// deduplicate deliveries.
func (r *Router) Forward(ctx context.Context, requestID, targetID string, p *fhir.Patient) error {
	rec, ok := r.registry.Lookup(targetID)
	if !ok {
		r.logger.Warn().
			Str("request_id", requestID).
			Str("target_facility", targetID).
			Msg("target facility not registered; skipping delivery")
		return nil
	}
	if rec.APIEndpoint == "" {
		r.logger.Warn().
			Str("request_id", requestID).
			Str("target_facility", targetID).
			Msg("target facility has no endpoint; skipping delivery")
		return nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: encoding resource: %v", ErrTransport, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rec.APIEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/fhir+json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: facility %q returned status %d", ErrTransport, targetID, resp.StatusCode)
	}

	r.logger.Info().
		Str("request_id", requestID).
		Str("target_facility", targetID).
		Str("endpoint", rec.APIEndpoint).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("resource delivered to facility")
	return nil
}
