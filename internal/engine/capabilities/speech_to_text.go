// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"

	"github.com/adiadia/app-builder/internal/domain"
)

type SpeechToText struct{}

func (s *SpeechToText) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	transcript := textFrom(input, "transcript", "text", "audio")
	if transcript == "" {
		transcript = "No speech detected in the audio input."
	}

	return domain.Payload{
		"type":           string(domain.ComponentSpeechToText),
		"language":       stringOpt(config, "language", "en"),
		"model":          stringOpt(config, "model", "whisper-1"),
		"responseFormat": stringOpt(config, "responseFormat", "text"),
		"input":          input,
		"transcript":     transcript,
		"confidence":     0.95,
		"timestamp":      timestamp(),
	}, nil
}
