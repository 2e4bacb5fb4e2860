// Package commandutil holds helpers shared by providers that shell out.
package commandutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/ports"
)

// IsCommandNotFound reports whether an error indicates a missing executable.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return true
	}
	return false
}

// ExitError describes a command that ran and exited non-zero.
type ExitError struct {
	Call   ports.CommandCall
	Result ports.CommandResult
}

// Error returns the command, its exit code and the most useful output line.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Call.Command, e.Result.ExitCode)
	if detail := lastLine(e.Result.Stderr); detail != "" {
		return msg + ": " + detail
	}
	if detail := lastLine(e.Result.Stdout); detail != "" {
		return msg + ": " + detail
	}
	return msg
}

// Run executes a command and turns a non-zero exit into an *ExitError.
// A missing executable is reported as "<cmd> not found in PATH".
func Run(ctx context.Context, runner ports.CommandRunner, command string, args ...string) (ports.CommandResult, error) {
	return RunDecoded(ctx, runner, nil, command, args...)
}

// RunDecoded is Run with stdout and stderr passed through decode first,
// for tools that do not print UTF-8. A nil decode leaves output untouched.
func RunDecoded(ctx context.Context, runner ports.CommandRunner, decode func(string) string, command string, args ...string) (ports.CommandResult, error) {
	result, err := runner.Run(ctx, command, args...)
	if decode != nil {
		result.Stdout = decode(result.Stdout)
		result.Stderr = decode(result.Stderr)
	}
	if err != nil {
		if IsCommandNotFound(err) {
			return result, fmt.Errorf("%s not found in PATH: %w", command, err)
		}
		return result, fmt.Errorf("run %s: %w", command, err)
	}
	if !result.Success() {
		return result, &ExitError{
			Call:   ports.CommandCall{Command: command, Args: args},
			Result: result,
		}
	}
	return result, nil
}

// ExitCode extracts the exit code from an *ExitError, or -1.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Result.ExitCode
	}
	return -1
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
