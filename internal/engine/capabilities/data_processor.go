// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"

	"github.com/adiadia/app-builder/internal/domain"
)

type DataProcessor struct{}

func (d *DataProcessor) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	ts := timestamp()

	var output any
	switch v := input.(type) {
	case []any:
		items := make([]any, 0, len(v))
		for i, item := range v {
			processed := cloneObject(item)
			processed["id"] = i
			processed["processed"] = true
			processed["timestamp"] = ts
			items = append(items, processed)
		}
		output = items
	default:
		processed := cloneObject(v)
		processed["processed"] = true
		processed["timestamp"] = ts
		output = processed
	}

	return domain.Payload{
		"type":      string(domain.ComponentDataProcessor),
		"operation": stringOpt(config, "operation", "transform"),
		"input":     input,
		"output":    output,
		"timestamp": ts,
	}, nil
}

// cloneObject copies a JSON object so the caller's input is never mutated;
// anything else is wrapped as {"value": v}.
func cloneObject(v any) map[string]any {
	switch obj := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(obj)+3)
		for k, val := range obj {
			out[k] = val
		}
		return out
	case domain.Payload:
		return cloneObject(map[string]any(obj))
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"value": v}
	}
}
