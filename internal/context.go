package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextOrganizationKey ctxKey = "organizationID"
)

// OrganizationIDFromContext is set once the caller's membership has been resolved.
func OrganizationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if orgID, ok := ctx.Value(ContextOrganizationKey).(string); ok {
		return orgID
	}
	return ""
}

func ContextWithOrganizationID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, ContextOrganizationKey, orgID)
}

// WithTimeout bounds a store call; zero or negative falls back to 5 seconds.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
