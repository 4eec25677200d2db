// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/adiadia/app-builder/internal/domain"
)

var (
	positiveWords = map[string]struct{}{
		"good": {}, "great": {}, "love": {}, "excellent": {}, "happy": {}, "thanks": {}, "hello": {}, "hi": {},
	}
	negativeWords = map[string]struct{}{
		"bad": {}, "terrible": {}, "hate": {}, "awful": {}, "sad": {}, "error": {}, "fail": {},
	}
)

type TextAnalysis struct{}

func (t *TextAnalysis) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	analysisType := stringOpt(config, "analysisType", "sentiment")
	text := textFrom(input, "text", "response", "transcript", "message")
	words := tokenize(text)

	sentiment, confidence := scoreSentiment(words)

	return domain.Payload{
		"type":         string(domain.ComponentTextAnalysis),
		"analysisType": analysisType,
		"text":         text,
		"result": map[string]any{
			"sentiment":  sentiment,
			"confidence": confidence,
			"keywords":   keywords(words, 5),
			"summary":    "Detected " + sentiment + " sentiment across " + strconv.Itoa(len(words)) + " words.",
		},
		"timestamp": timestamp(),
	}, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func scoreSentiment(words []string) (string, float64) {
	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	switch {
	case pos > neg:
		return "positive", 0.5 + 0.5*float64(pos-neg)/float64(pos+neg)
	case neg > pos:
		return "negative", 0.5 + 0.5*float64(neg-pos)/float64(pos+neg)
	default:
		return "neutral", 0.5
	}
}

// keywords returns up to limit of the most frequent words longer than three
// letters, ties broken alphabetically.
func keywords(words []string, limit int) []string {
	counts := make(map[string]int, len(words))
	for _, w := range words {
		if len(w) > 3 {
			counts[w]++
		}
	}

	out := make([]string, 0, len(counts))
	for w := range counts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
