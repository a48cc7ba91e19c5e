package monitoring

import (
	"context"
	"errors"
	"testing"

	sentry "github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNDisables(t *testing.T) {
	enabled, err := Init(Options{})
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestInit_InvalidDSN(t *testing.T) {
	_, err := Init(Options{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestWithHub_IsolatesScope(t *testing.T) {
	ctx := WithHub(context.Background(), map[string]string{"session_id": "abc"})

	hub := HubFromContext(ctx)
	require.NotNil(t, hub)
	assert.NotSame(t, sentry.CurrentHub(), hub)
	assert.Same(t, hub, HubFromContext(ctx), "the same hub is returned for the same context")
}

func TestHubFromContext_FallsBack(t *testing.T) {
	assert.Same(t, sentry.CurrentHub(), HubFromContext(context.Background()))
}

func TestCaptureException_WithoutClient(t *testing.T) {
	ctx := WithHub(context.Background(), nil)
	assert.NotPanics(t, func() {
		CaptureException(ctx, errors.New("boom"))
		CaptureException(ctx, nil)
		AddBreadcrumb(ctx, "session", "started")
	})
}
