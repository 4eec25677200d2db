// SPDX-License-Identifier: Apache-2.0

package auth

import (
	"context"
	"strings"
)

type clientIDContextKey struct{}
type adminContextKey struct{}

var ctxClientIDKey clientIDContextKey
var ctxAdminKey adminContextKey

// WithClientID stores the identity used for rate limiting, the caller's
// remote host.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ctxClientIDKey, clientID)
}

func ClientIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxClientIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// WithAdmin marks a request as authenticated with the admin token.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxAdminKey, true)
}

func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(ctxAdminKey).(bool)
	return v
}
