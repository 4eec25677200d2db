// SPDX-License-Identifier: Apache-2.0

// Package capabilities holds the built-in component implementations. They
// produce deterministic payloads from their config and input; api-call is the
// only one that talks to the network.
package capabilities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adiadia/app-builder/internal/domain"
)

func stringOpt(config map[string]any, key, def string) string {
	if v, ok := config[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func boolOpt(config map[string]any, key string, def bool) bool {
	if v, ok := config[key].(bool); ok {
		return v
	}
	return def
}

func floatOpt(config map[string]any, key string, def float64) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

func intOpt(config map[string]any, key string, def int) int {
	switch v := config[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// textFrom extracts the text a step should work on: the input itself when it
// is a string, otherwise the first string field found under keys.
func textFrom(input any, keys ...string) string {
	switch v := input.(type) {
	case string:
		return v
	case map[string]any:
		for _, k := range keys {
			if s, ok := v[k].(string); ok {
				return s
			}
		}
	case domain.Payload:
		return textFrom(map[string]any(v), keys...)
	case nil:
		return ""
	}
	return fmt.Sprint(input)
}

func timestamp() string {
	return domain.FormatTimestamp(time.Now())
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
