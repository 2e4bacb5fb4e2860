//go:build !windows

package command

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Success(t *testing.T) {
	t.Parallel()

	result, err := NewRealRunner().Run(context.Background(), "echo", "hello")

	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "hello\n", result.Stdout)
}

func TestRealRunner_NonZeroExitIsNotAnError(t *testing.T) {
	t.Parallel()

	result, err := NewRealRunner().Run(context.Background(), "sh", "-c", "echo oops >&2; exit 3")

	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "oops\n", result.Stderr)
}

func TestRealRunner_NotFound(t *testing.T) {
	t.Parallel()

	_, err := NewRealRunner().Run(context.Background(), "wslboot-nonexistent-12345")

	require.Error(t, err)
	assert.True(t, commandutil.IsCommandNotFound(err))
}

func TestRealRunner_WithEnv(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner(WithEnv("WSLBOOT_TEST=42"))

	result, err := runner.Run(context.Background(), "sh", "-c", "printf %s \"$WSLBOOT_TEST\"")

	require.NoError(t, err)
	assert.Equal(t, "42", result.Stdout)
}

func TestRealRunner_WithTimeout(t *testing.T) {
	t.Parallel()

	runner := NewRealRunner(WithTimeout(50 * time.Millisecond))

	_, err := runner.Run(context.Background(), "sleep", "5")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
