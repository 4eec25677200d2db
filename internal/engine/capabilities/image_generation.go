// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"net/url"

	"github.com/adiadia/app-builder/internal/domain"
)

const imageBaseURL = "https://placeholder.image/generate"

type ImageGeneration struct{}

func (g *ImageGeneration) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	style := stringOpt(config, "style", "realistic")
	size := stringOpt(config, "size", "512x512")
	prompt := textFrom(input, "prompt", "response", "text")

	q := url.Values{}
	q.Set("prompt", prompt)
	q.Set("style", style)
	q.Set("size", size)

	return domain.Payload{
		"type":      string(domain.ComponentImageGeneration),
		"prompt":    prompt,
		"style":     style,
		"size":      size,
		"imageUrl":  imageBaseURL + "?" + q.Encode(),
		"timestamp": timestamp(),
	}, nil
}
