// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"strings"
	"sync"

	"lxdpanel/pkg/execx"
)

// Call records one command invocation made against the FakeRunner.
type Call struct {
	Name        string
	Args        []string
	Interactive bool
}

// Line renders the call as a single command line for assertions.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// FakeRunner is a scripted execx.Runner. Responses are keyed by full
// command line and consumed in order, so a command can change its answer
// across invocations (a container that is absent, then running).
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Call
	responses map[string][]execx.Result
	errs      map[string]error

	// Default is returned for any command line without a scripted response.
	Default execx.Result
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string][]execx.Result),
		errs:      make(map[string]error),
	}
}

// Respond scripts one or more results for a command line, consumed FIFO.
// The last result sticks once the queue would otherwise run dry.
func (f *FakeRunner) Respond(line string, results ...execx.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = append(f.responses[line], results...)
}

// Fail makes a command line return a hard error (binary missing etc.).
func (f *FakeRunner) Fail(line string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[line] = err
}

func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (execx.Result, error) {
	return f.record(Call{Name: name, Args: args})
}

func (f *FakeRunner) RunInteractive(_ context.Context, name string, args ...string) (execx.Result, error) {
	return f.record(Call{Name: name, Args: args, Interactive: true})
}

func (f *FakeRunner) record(call Call) (execx.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, call)
	line := call.Line()

	if err, ok := f.errs[line]; ok {
		return execx.Result{ExitCode: -1}, err
	}

	queue := f.responses[line]
	if len(queue) == 0 {
		return f.Default, nil
	}

	result := queue[0]
	if len(queue) > 1 {
		f.responses[line] = queue[1:]
	}
	return result, nil
}

// Lines returns every recorded command line in order.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, 0, len(f.Calls))
	for _, call := range f.Calls {
		lines = append(lines, call.Line())
	}
	return lines
}

// Count returns how many times a command line was invoked.
func (f *FakeRunner) Count(line string) int {
	count := 0
	for _, recorded := range f.Lines() {
		if recorded == line {
			count++
		}
	}
	return count
}

// CountPrefix returns how many recorded command lines start with prefix.
func (f *FakeRunner) CountPrefix(prefix string) int {
	count := 0
	for _, recorded := range f.Lines() {
		if strings.HasPrefix(recorded, prefix) {
			count++
		}
	}
	return count
}
