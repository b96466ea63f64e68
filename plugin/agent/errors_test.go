package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"unauthorized", errors.New("unauthorized: token expired"), ErrorClassAuth},
		{"http_401", errors.New("canvas API returned 401"), ErrorClassAuth},
		{"forbidden", errors.New("403 Forbidden"), ErrorClassAuth},
		{"invalid_token", errors.New("invalid token provided"), ErrorClassAuth},
		{"connection_refused", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrorClassTransient},
		{"reset", errors.New("read: connection reset by peer"), ErrorClassTransient},
		{"timeout", fmt.Errorf("request failed: %w", context.DeadlineExceeded), ErrorClassTransient},
		{"rate_limited", errors.New("429 too many requests"), ErrorClassTransient},
		{"service_unavailable", errors.New("503 service unavailable"), ErrorClassTransient},
		{"not_found", errors.New("course not found"), ErrorClassPermanent},
		{"bad_args", errors.New("missing required field course_id"), ErrorClassPermanent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			classified := ClassifyError(tc.err)
			if tc.err == nil {
				require.Nil(t, classified)
				return
			}
			require.Equal(t, tc.expected, classified.Class)
			require.ErrorIs(t, classified, tc.err)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	require.True(t, ShouldRetry(errors.New("i/o timeout")))
	require.False(t, ShouldRetry(errors.New("unauthorized")))
	require.False(t, ShouldRetry(errors.New("invalid argument")))
}

func TestAuthErrorTakesPrecedenceOverNetworkPatterns(t *testing.T) {
	// A 401 inside a message that also matches network patterns must
	// still classify as auth so it is never retried.
	classified := ClassifyError(errors.New("401 unauthorized: dial tcp succeeded but token rejected"))
	require.Equal(t, ErrorClassAuth, classified.Class)
	require.False(t, classified.IsTransient())
}
