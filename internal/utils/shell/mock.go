package shell

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MockCommand maps a command pattern to a canned result. Pattern matches as a
// plain substring or, failing that, as a regular expression.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
	// Action, when set, runs in place of the command with its working
	// directory, e.g. to create the files a build would produce.
	Action func(dir string) error
}

// MockCall records one command seen by a MockExecutor.
type MockCall struct {
	Cmd string
	Dir string
	Env []string
}

// MockExecutor answers commands from a fixed table and records every call.
type MockExecutor struct {
	Commands []MockCommand
	// Missing lists commands IsCommandExist reports as absent.
	Missing []string

	mu    sync.Mutex
	calls []MockCall
}

// NewMockExecutor returns a MockExecutor answering from commands.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{Commands: commands}
}

func (m *MockExecutor) match(cmdStr string) (MockCommand, bool) {
	for _, c := range m.Commands {
		if strings.Contains(cmdStr, c.Pattern) {
			return c, true
		}
		if re, err := regexp.Compile(c.Pattern); err == nil && re.MatchString(cmdStr) {
			return c, true
		}
	}
	return MockCommand{}, false
}

func (m *MockExecutor) record(cmdStr, dir string, envVal []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Cmd: cmdStr, Dir: dir, Env: append([]string(nil), envVal...)})
}

// ExecCmd returns the canned result for cmdStr.
func (m *MockExecutor) ExecCmd(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	m.record(cmdStr, dir, envVal)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c, ok := m.match(cmdStr)
	if !ok {
		return "", fmt.Errorf("unexpected command for mock executor: %s", cmdStr)
	}
	if c.Action != nil {
		if err := c.Action(dir); err != nil {
			return c.Output, err
		}
	}
	return c.Output, c.Error
}

// ExecCmdWithStream behaves like ExecCmd.
func (m *MockExecutor) ExecCmdWithStream(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	return m.ExecCmd(ctx, cmdStr, dir, envVal)
}

// IsCommandExist reports false only for commands listed in Missing.
func (m *MockExecutor) IsCommandExist(cmd string) bool {
	for _, missing := range m.Missing {
		if missing == cmd {
			return false
		}
	}
	return true
}

// Calls returns a copy of the recorded calls.
func (m *MockExecutor) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallsMatching returns the recorded calls whose command contains substr.
func (m *MockExecutor) CallsMatching(substr string) []MockCall {
	var out []MockCall
	for _, c := range m.Calls() {
		if strings.Contains(c.Cmd, substr) {
			out = append(out, c)
		}
	}
	return out
}
