// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/wslboot/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
//
// Each registered command holds a queue of responses. Calls consume the
// queue in order and the last response repeats, so a check can report
// "absent" before a remediation and "present" after it.
type CommandRunner struct {
	mu        sync.Mutex
	responses map[string][]response
	calls     []ports.CommandCall
}

type response struct {
	result ports.CommandResult
	err    error
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		responses: make(map[string][]response),
	}
}

// AddResult registers the result for a command, replacing earlier ones.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.AddResults(command, args, result)
}

// AddResults registers a sequence of results for a command.
func (m *CommandRunner) AddResults(command string, args []string, results ...ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := make([]response, 0, len(results))
	for _, r := range results {
		queue = append(queue, response{result: r})
	}
	m.responses[buildKey(command, args)] = queue
}

// AddError registers a command that fails to start.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[buildKey(command, args)] = []response{{err: err}}
}

// Run returns the next registered response for the command.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ports.CommandCall{
		Command: command,
		Args:    append([]string(nil), args...),
	})

	key := buildKey(command, args)
	queue, ok := m.responses[key]
	if !ok || len(queue) == 0 {
		return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
	}

	next := queue[0]
	if len(queue) > 1 {
		m.responses[key] = queue[1:]
	}
	return next.result, next.err
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns how many times a command with exactly these args ran.
func (m *CommandRunner) CallCount(command string, args ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := buildKey(command, args)
	n := 0
	for _, c := range m.calls {
		if buildKey(c.Command, c.Args) == key {
			n++
		}
	}
	return n
}

// Reset clears all registered responses and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = make(map[string][]response)
	m.calls = nil
}

func buildKey(command string, args []string) string {
	return command + "\x00" + strings.Join(args, "\x00")
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
