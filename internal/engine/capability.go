// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/adiadia/app-builder/internal/domain"
)

// Capability executes one component type. input is either the caller's raw
// input or the previous successful step's payload.
type Capability interface {
	Execute(ctx context.Context, config map[string]any, input any, sessionID string) (domain.Payload, error)
}

// CapabilityFunc adapts a plain function to Capability.
type CapabilityFunc func(ctx context.Context, config map[string]any, input any, sessionID string) (domain.Payload, error)

func (f CapabilityFunc) Execute(ctx context.Context, config map[string]any, input any, sessionID string) (domain.Payload, error) {
	return f(ctx, config, input, sessionID)
}
