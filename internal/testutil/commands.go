package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Command is one recorded toolchain invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
}

// String returns "name arg1 arg2".
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// FakeCommands records toolchain invocations instead of running them.
// A command whose name equals FailOn returns an error.
type FakeCommands struct {
	FailOn string

	mu    sync.Mutex
	calls []Command
}

// Run implements device.CommandRunner.
func (f *FakeCommands) Run(_ context.Context, dir, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Command{Dir: dir, Name: name, Args: args})
	if name == f.FailOn {
		return errors.New("exit status 2")
	}
	return nil
}

// Calls returns the recorded invocations as strings.
func (f *FakeCommands) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}
