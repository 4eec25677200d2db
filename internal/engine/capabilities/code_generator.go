// SPDX-License-Identifier: Apache-2.0

package capabilities

import (
	"context"
	"fmt"
	"strings"

	"github.com/adiadia/app-builder/internal/domain"
)

type CodeGenerator struct{}

func (c *CodeGenerator) Execute(
	ctx context.Context,
	config map[string]any,
	input any,
	sessionID string,
) (domain.Payload, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	language := stringOpt(config, "language", "javascript")
	framework := stringOpt(config, "framework", "none")
	style := stringOpt(config, "style", "functional")
	includeComments := boolOpt(config, "includeComments", true)
	prompt := textFrom(input, "prompt", "response", "text")

	var b strings.Builder
	if includeComments {
		fmt.Fprintf(&b, "// Generated code based on: %s\n", prompt)
	}
	b.WriteString("function generated() {\n")
	if includeComments {
		b.WriteString("  // Generated from the workflow prompt\n")
	}
	fmt.Fprintf(&b, "  return %q;\n}", fmt.Sprintf("Generated %s code using %s framework", language, framework))

	var explanation any
	if includeComments {
		explanation = "This function demonstrates the requested functionality."
	}

	return domain.Payload{
		"type":          string(domain.ComponentCodeGenerator),
		"language":      language,
		"framework":     framework,
		"style":         style,
		"prompt":        prompt,
		"generatedCode": b.String(),
		"explanation":   explanation,
		"timestamp":     timestamp(),
	}, nil
}
