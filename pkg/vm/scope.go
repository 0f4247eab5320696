package vm

import (
	"fmt"
	"sort"
	"sync"
)

// Scope represents a variable scope in the VM.
// It supports hierarchical scoping with parent scope lookup.
// Function scopes receive var declarations; block scopes only hold let and const.
type Scope struct {
	variables map[string]any
	consts    map[string]bool
	lexical   map[string]bool // names bound by let or const
	parent    *Scope
	function  bool
	mu        sync.RWMutex
}

// NewScope creates a new block scope with an optional parent scope.
// A scope without a parent is the global scope and also acts as a function scope.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		variables: make(map[string]any),
		parent:    parent,
		function:  parent == nil,
	}
}

// NewFunctionScope creates the scope of a function invocation.
func NewFunctionScope(parent *Scope) *Scope {
	s := NewScope(parent)
	s.function = true
	return s
}

// Get retrieves a variable value by name.
// It first searches the current scope, then parent scopes.
func (s *Scope) Get(name string) (any, bool) {
	s.mu.RLock()
	value, ok := s.variables[name]
	parent := s.parent
	s.mu.RUnlock()

	if ok {
		return value, true
	}
	if parent != nil {
		return parent.Get(name)
	}
	return nil, false
}

// Lookup returns the scope in which name is declared, or nil.
func (s *Scope) Lookup(name string) *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.HasLocal(name) {
			return cur
		}
	}
	return nil
}

// Set sets a variable value in the appropriate scope.
// If the variable exists in any parent scope, it updates that scope.
// Otherwise, it creates the variable in the current scope.
// Constants are not checked here; see Assign.
func (s *Scope) Set(name string, value any) {
	if owner := s.Lookup(name); owner != nil {
		owner.SetLocal(name, value)
		return
	}
	s.SetLocal(name, value)
}

// Assign updates an existing binding. It fails for constants and
// reports false when the name is not declared anywhere.
func (s *Scope) Assign(name string, value any) (bool, error) {
	owner := s.Lookup(name)
	if owner == nil {
		return false, nil
	}
	if owner.IsConst(name) {
		return true, fmt.Errorf("assignment to constant variable %q", name)
	}
	owner.SetLocal(name, value)
	return true, nil
}

// Declare creates a let or const binding in this scope.
// Declaring the same name twice in one scope is an error.
func (s *Scope) Declare(name string, value any, constant bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.variables[name]; exists {
		return fmt.Errorf("identifier %q has already been declared", name)
	}
	s.variables[name] = value
	if s.lexical == nil {
		s.lexical = make(map[string]bool)
	}
	s.lexical[name] = true
	if constant {
		if s.consts == nil {
			s.consts = make(map[string]bool)
		}
		s.consts[name] = true
	}
	return nil
}

// Clone returns a block scope with the same parent holding a copy of
// this scope's bindings. Loops use it to give each iteration fresh let bindings.
func (s *Scope) Clone() *Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewScope(s.parent)
	c.function = s.function
	for k, v := range s.variables {
		c.variables[k] = v
	}
	if len(s.consts) > 0 {
		c.consts = make(map[string]bool, len(s.consts))
		for k := range s.consts {
			c.consts[k] = true
		}
	}
	if len(s.lexical) > 0 {
		c.lexical = make(map[string]bool, len(s.lexical))
		for k := range s.lexical {
			c.lexical[k] = true
		}
	}
	return c
}

// ResetLexical drops every let and const binding of this scope; var and
// function bindings stay.
func (s *Scope) ResetLexical() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.lexical {
		delete(s.variables, name)
		delete(s.consts, name)
	}
	s.lexical = nil
}

// FunctionScope returns the nearest enclosing function scope, where var lives.
func (s *Scope) FunctionScope() *Scope {
	cur := s
	for !cur.function && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// IsConst reports whether name is a constant declared in this scope.
func (s *Scope) IsConst(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consts[name]
}

// GetLocal retrieves a variable value only from the current scope (not parent).
func (s *Scope) GetLocal(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.variables[name]
	return value, ok
}

// SetLocal sets a variable value only in the current scope.
// This is used for function parameters and var declarations.
func (s *Scope) SetLocal(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variables[name] = value
}

// Delete removes a variable from the current scope.
func (s *Scope) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.variables[name]; ok {
		delete(s.variables, name)
		delete(s.consts, name)
		delete(s.lexical, name)
		return true
	}
	return false
}

// Has checks if a variable exists in this scope or any parent scope.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// HasLocal checks if a variable exists only in the current scope.
func (s *Scope) HasLocal(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.variables[name]
	return ok
}

// Parent returns the parent scope, or nil for the global scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Keys returns the variable names of the current scope in sorted order.
func (s *Scope) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.variables))
	for k := range s.variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the number of variables in the current scope (not including parent).
func (s *Scope) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.variables)
}
