package semantics

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/derekxu16/dishsoap/internal/ir"
)

// Environment maps names to types within one scope.
type Environment map[string]ir.Type

func (e Environment) Lookup(name string) (ir.Type, bool) {
	t, ok := e[name]
	return t, ok
}

// Insert binds name, replacing any previous binding in this scope.
func (e Environment) Insert(name string, t ir.Type) {
	e[name] = t
}

func (e Environment) String() string {
	var buf bytes.Buffer
	names := maps.Keys(e)
	slices.Sort(names)
	for i, name := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(fmt.Sprintf("%s: %s", name, e[name]))
	}
	return buf.String()
}

// EnvironmentStack is a stack of scopes, innermost last. Entering a scope
// copies the current innermost scope, so shadowing never changes an outer
// scope.
type EnvironmentStack struct {
	scopes []Environment
}

func NewEnvironmentStack(seed Environment) *EnvironmentStack {
	top := maps.Clone(seed)
	if top == nil {
		top = make(Environment)
	}
	return &EnvironmentStack{scopes: []Environment{top}}
}

// EnterScope pushes a copy of the innermost scope and returns it.
func (s *EnvironmentStack) EnterScope() Environment {
	top := maps.Clone(s.Top())
	s.scopes = append(s.scopes, top)
	return top
}

// ExitScope discards the innermost scope.
func (s *EnvironmentStack) ExitScope() {
	if len(s.scopes) == 1 {
		panic("exit of outermost scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
}

// Top returns the innermost scope.
func (s *EnvironmentStack) Top() Environment {
	return s.scopes[len(s.scopes)-1]
}

// Depth returns the number of scopes on the stack.
func (s *EnvironmentStack) Depth() int {
	return len(s.scopes)
}
