// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	apiCallDefaultMethod = http.MethodPost
	apiCallMaxAttempts   = 5
	apiCallRetryBase     = 300 * time.Millisecond
	apiCallMaxBodyBytes  = 1 << 20
	apiCallHeaderSig     = "X-Signature"
)

// APICall forwards the step input as JSON to config.url and returns the
// decoded response. Transport errors and 5xx responses are retried up to
// config.retries attempts with exponential backoff.
type APICall struct {
	client    *http.Client
	retryBase time.Duration
}

func NewAPICall(client *http.Client) *APICall {
	// No Client.Timeout: the engine bounds each call through ctx, and a
	// client-wide limit would override per-capability timeouts.
	if client == nil {
		client = &http.Client{}
	}
	return &APICall{
		client:    client,
		retryBase: apiCallRetryBase,
	}
}

func (a *APICall) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	target := strings.TrimSpace(stringOpt(config, "url", ""))
	if target == "" {
		return nil, errors.New("api-call requires a url")
	}
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("api-call url is invalid: %q", target)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api-call url scheme not supported: %q", parsed.Scheme)
	}

	method := strings.ToUpper(stringOpt(config, "method", apiCallDefaultMethod))
	attempts := intOpt(config, "retries", 1)
	if attempts < 1 {
		attempts = 1
	}
	if attempts > apiCallMaxAttempts {
		attempts = apiCallMaxAttempts
	}

	var body []byte
	if method != http.MethodGet && method != http.MethodHead {
		body, err = json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("api-call encode input: %w", err)
		}
	}
	signature := signPayload(stringOpt(config, "secret", ""), body)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		status, data, err := a.do(ctx, method, target, headersOpt(config), body, signature, sessionID)
		if err == nil && status < http.StatusInternalServerError {
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return nil, fmt.Errorf("api-call %s %s: non-2xx response: %d", method, target, status)
			}
			return domain.Payload{
				"type":   string(domain.ComponentAPICall),
				"url":    target,
				"method": method,
				"input":  input,
				"response": map[string]any{
					"status":     "success",
					"statusCode": status,
					"data":       data,
					"timestamp":  timestamp(),
				},
				"attempts":  attempt,
				"timestamp": timestamp(),
			}, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("non-2xx response: %d", status)
		}

		if attempt < attempts {
			wait := a.retryBase * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("api-call %s %s failed after %d attempt(s): %w", method, target, attempts, lastErr)
}

func (a *APICall) do(
	ctx context.Context,
	method, target string,
	headers map[string]string,
	body []byte,
	signature string,
	sessionID string,
) (int, any, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if signature != "" {
		req.Header.Set(apiCallHeaderSig, signature)
	}
	if sessionID != "" {
		req.Header.Set("X-Session-Id", sessionID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, apiCallMaxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, decodeBody(raw), nil
}

// decodeBody returns the JSON value of raw, or raw as a string when the
// response is not JSON.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func headersOpt(config map[string]any) map[string]string {
	out := map[string]string{}
	switch h := config["headers"].(type) {
	case map[string]any:
		for k, v := range h {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	case map[string]string:
		for k, v := range h {
			out[k] = v
		}
	}
	return out
}

func signPayload(secret string, payload []byte) string {
	if strings.TrimSpace(secret) == "" {
		return ""
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
