// Package mainqueue records deferred setup and run steps and replays them
// into the procedural statements of the generated runner.
package mainqueue

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/b2genn/pkg/core"
)

// excludedCodeObjects are handled by the GeNN runtime's own spike queue and
// must not be called again from main.
var excludedCodeObjects = []string{"initialise_queue", "push_spikes"}

// Procedure is a named block of statements produced by a StartRunFunc /
// EndRunFunc pair.
type Procedure struct {
	Name  string
	Lines []string
}

// Program is the drained form of a queue.
type Program struct {
	// Main holds the statements of the top-level scope.
	Main []string
	// Procedures holds the closed named scopes in the order they were closed.
	Procedures []Procedure
}

// Procedure returns the lines of the named procedure.
func (p *Program) Procedure(name string) ([]string, bool) {
	for _, proc := range p.Procedures {
		if proc.Name == name {
			return proc.Lines, true
		}
	}
	return nil, false
}

// Queue is an ordered log of actions. It is drained exactly once.
type Queue struct {
	actions []core.Action
	drained bool
	logger  *slog.Logger
}

// New creates an empty queue. A nil logger discards output.
func New(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Queue{logger: logger}
}

// Append records an action after checking its payload is well formed.
func (q *Queue) Append(a core.Action) error {
	if a == nil {
		return &core.ConstructionError{Op: "append", Message: "nil action"}
	}
	if q.drained {
		return &core.ConstructionError{Op: a.Kind(), Message: "queue has already been drained"}
	}
	if err := a.Validate(); err != nil {
		return err
	}
	q.actions = append(q.actions, a)
	return nil
}

// Len returns the number of recorded actions.
func (q *Queue) Len() int {
	return len(q.actions)
}

// Actions returns a copy of the recorded actions.
func (q *Queue) Actions() []core.Action {
	out := make([]core.Action, len(q.actions))
	copy(out, q.actions)
	return out
}

// scope is one entry of the procedure stack.
type scope struct {
	name  string
	lines []string
}

// Drain replays the queue into a Program. finalisers are appended to the
// top-level scope, in order, after all actions.
func (q *Queue) Drain(finalisers []string) (*Program, error) {
	if q.drained {
		return nil, &core.ConstructionError{Op: "drain", Message: "queue has already been drained"}
	}
	q.drained = true

	stack := []*scope{{}}
	prog := &Program{}

	for i, action := range q.actions {
		current := stack[len(stack)-1]

		switch a := action.(type) {
		case core.RunCodeObject:
			if isExcluded(a.CodeObject) {
				q.logger.Debug("skipping spike queue code object", "code_object", a.CodeObject)
				continue
			}
			current.lines = append(current.lines, fmt.Sprintf("_run_%s();", a.CodeObject))

		case core.RunNetwork:
			current.lines = append(current.lines, a.Lines...)

		case core.SetByArray:
			current.lines = append(current.lines, copyLoop(a)...)

		case core.SetArrayByArray:
			current.lines = append(current.lines, scatterLoop(a)...)

		case core.InsertCode:
			current.lines = append(current.lines, a.Code)

		case core.StartRunFunc:
			if a.IncludeInParent {
				current.lines = append(current.lines, a.Name+"();")
			}
			stack = append(stack, &scope{name: a.Name})

		case core.EndRunFunc:
			if len(stack) == 1 {
				return nil, &core.ConstructionError{
					Op:      a.Kind(),
					Message: fmt.Sprintf("action %d closes %q but no procedure is open", i, a.Name),
				}
			}
			if current.name != a.Name {
				return nil, &core.ConstructionError{
					Op:      a.Kind(),
					Message: fmt.Sprintf("action %d closes %q but %q is open", i, a.Name, current.name),
				}
			}
			stack = stack[:len(stack)-1]
			prog.Procedures = append(prog.Procedures, Procedure{Name: current.name, Lines: current.lines})

		default:
			return nil, &core.ConstructionError{
				Op:      "drain",
				Message: fmt.Sprintf("unknown action type %T", action),
			}
		}
	}

	if len(stack) > 1 {
		open := make([]string, 0, len(stack)-1)
		for _, s := range stack[1:] {
			open = append(open, s.name)
		}
		return nil, &core.ConstructionError{
			Op:      "drain",
			Message: "procedures left open: " + strings.Join(open, ", "),
		}
	}

	top := stack[0]
	for _, f := range finalisers {
		if f != "" {
			top.lines = append(top.lines, f)
		}
	}
	prog.Main = top.lines

	q.logger.Debug("drained main queue",
		"actions", len(q.actions),
		"main_lines", len(prog.Main),
		"procedures", len(prog.Procedures))

	return prog, nil
}

func isExcluded(name string) bool {
	for _, ex := range excludedCodeObjects {
		if strings.Contains(name, ex) {
			return true
		}
	}
	return false
}

func copyLoop(a core.SetByArray) []string {
	return []string{
		fmt.Sprintf("for(int i=0; i<_num_%s; i++)", a.StaticArray),
		"{",
		fmt.Sprintf("    %s[i] = %s[i];", a.Array, a.StaticArray),
		"}",
	}
}

func scatterLoop(a core.SetArrayByArray) []string {
	return []string{
		fmt.Sprintf("for(int i=0; i<_num_%s; i++)", a.Indices),
		"{",
		fmt.Sprintf("    %s[%s[i]] = %s[i];", a.Array, a.Indices, a.Values),
		"}",
	}
}
