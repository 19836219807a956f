// Package testutil holds helpers shared by the integration suites: a JSON
// client for the HTTP API, an event recorder and polling assertions.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID returns a deterministic UUID derived from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// ContextWithTimeout returns a context cancelled when the test ends or the timeout elapses
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually polls condition until it holds or timeout elapses
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
