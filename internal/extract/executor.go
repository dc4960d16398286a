package extract

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Executor runs one external command to completion.
type Executor interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// OSExecutor runs commands with os/exec and returns combined output.
type OSExecutor struct {
	// Env is appended to the inherited environment.
	Env []string
}

func (e *OSExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd.CombinedOutput()
}

// MockExecutor records invocations instead of running them.
type MockExecutor struct {
	mu sync.Mutex

	// Calls records every invocation in order.
	Calls []MockCall

	// Responses maps "name arg1 arg2..." to a canned response.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse
}

// MockCall records one invocation.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// Line joins name and args with single spaces.
func (c MockCall) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// MockResponse is the canned result of a call.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{Responses: make(map[string]MockResponse)}
}

// AddResponse sets the result for an exact command line.
func (m *MockExecutor) AddResponse(line string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[line] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := MockCall{Dir: dir, Name: name, Args: append([]string(nil), args...)}
	m.Calls = append(m.Calls, call)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp, ok := m.Responses[call.Line()]; ok {
		return resp.Output, resp.Err
	}
	return m.DefaultResponse.Output, m.DefaultResponse.Err
}

// CallCount returns the number of recorded invocations.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Lines returns the recorded command lines in order.
func (m *MockExecutor) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Line()
	}
	return out
}
