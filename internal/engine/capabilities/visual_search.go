// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"

	"github.com/adiadia/app-builder/internal/domain"
)

type detection struct {
	label      string
	confidence float64
	box        map[string]any
}

var referenceDetections = []detection{
	{label: "Person", confidence: 0.95, box: map[string]any{"x": 100, "y": 50, "width": 200, "height": 300}},
	{label: "Car", confidence: 0.87, box: map[string]any{"x": 300, "y": 200, "width": 150, "height": 100}},
	{label: "Tree", confidence: 0.64, box: map[string]any{"x": 20, "y": 10, "width": 80, "height": 240}},
}

type VisualSearch struct{}

func (v *VisualSearch) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	minConfidence := floatOpt(config, "confidence", 0.7)
	maxResults := intOpt(config, "maxResults", 10)
	includeLabels := boolOpt(config, "includeLabels", true)

	results := make([]any, 0, len(referenceDetections))
	for _, d := range referenceDetections {
		if len(results) >= maxResults {
			break
		}
		if d.confidence < minConfidence {
			continue
		}

		var label any
		if includeLabels {
			label = d.label
		}
		results = append(results, map[string]any{
			"label":       label,
			"confidence":  d.confidence,
			"boundingBox": d.box,
		})
	}

	return domain.Payload{
		"type":       string(domain.ComponentVisualSearch),
		"searchType": stringOpt(config, "searchType", "objects"),
		"confidence": minConfidence,
		"maxResults": maxResults,
		"input":      input,
		"results":    results,
		"timestamp":  timestamp(),
	}, nil
}
