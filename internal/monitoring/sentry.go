// Package monitoring reports errors to Sentry. Every helper is a no-op
// until Init has been called with a DSN.
package monitoring

import (
	"context"
	"time"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

type contextKey string

const hubContextKey contextKey = "sentry_hub"

// Options configures error reporting
type Options struct {
	DSN         string
	Environment string
	Release     string
}

// Init configures the global Sentry client. It reports whether reporting is
// enabled; an empty DSN disables it without error.
func Init(opts Options) (bool, error) {
	if opts.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Middleware attaches a per-request hub and recovers panics into Sentry.
// Panics are re-raised for gin's own recovery.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// WithHub returns a context carrying a clone of the current hub, tagged
// with tags. Errors captured through it keep those tags.
func WithHub(ctx context.Context, tags map[string]string) context.Context {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	return context.WithValue(ctx, hubContextKey, hub)
}

// HubFromContext finds the hub for ctx, falling back to the current hub
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if c, ok := ctx.(*gin.Context); ok {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			return hub
		}
		ctx = c.Request.Context()
	}
	if hub, ok := ctx.Value(hubContextKey).(*sentry.Hub); ok && hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// CaptureException reports err on the hub for ctx
func CaptureException(ctx context.Context, err error) {
	if err == nil {
		return
	}
	HubFromContext(ctx).CaptureException(err)
}

// AddBreadcrumb records a step on the hub for ctx
func AddBreadcrumb(ctx context.Context, category, message string) {
	HubFromContext(ctx).AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    sentry.LevelInfo,
	}, nil)
}

// Flush waits up to timeout for queued events to be sent
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}
