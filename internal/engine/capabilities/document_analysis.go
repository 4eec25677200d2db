// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"strings"

	"github.com/adiadia/app-builder/internal/domain"
)

type DocumentAnalysis struct{}

func (d *DocumentAnalysis) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	analysisType := stringOpt(config, "analysisType", "summary")
	text := textFrom(input, "text", "content", "transcript", "response")
	words := tokenize(text)

	results := map[string]any{
		"extractedText":   nil,
		"extractedTables": nil,
		"extractedImages": nil,
		"summary":         nil,
		"keywords":        nil,
		"sentiment":       nil,
	}
	if boolOpt(config, "extractText", true) {
		results["extractedText"] = text
	}
	if boolOpt(config, "extractTables", true) {
		results["extractedTables"] = []any{}
	}
	if boolOpt(config, "extractImages", false) {
		results["extractedImages"] = []any{}
	}

	switch analysisType {
	case "summary":
		results["summary"] = summarize(words, 25)
	case "keywords":
		results["keywords"] = keywords(words, 10)
	case "sentiment":
		label, score := scoreSentiment(words)
		results["sentiment"] = map[string]any{"score": score, "label": label}
	}

	return domain.Payload{
		"type":         string(domain.ComponentDocumentAnalysis),
		"analysisType": analysisType,
		"input":        input,
		"results":      results,
		"timestamp":    timestamp(),
	}, nil
}

func summarize(words []string, limit int) string {
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}
