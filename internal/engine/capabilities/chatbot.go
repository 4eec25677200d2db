// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"fmt"

	"github.com/adiadia/app-builder/internal/domain"
)

type Chatbot struct{}

func (c *Chatbot) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	prompt := stringOpt(config, "prompt", "")
	model := stringOpt(config, "model", "gpt-3.5-turbo")
	message := textFrom(input, "message", "response", "text")

	payload := domain.Payload{
		"type":      string(domain.ComponentChatbot),
		"response":  fmt.Sprintf("AI Response to: %q. Configuration: %s", message, prompt),
		"model":     model,
		"timestamp": timestamp(),
	}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	return payload, nil
}
