// Package analysis statically determines, for a block of Python source, the
// free variable names it reads and the top-level names it assigns.
package analysis

// kind classifies how a name is used at one point in a scope's source order.
type kind int

const (
	read kind = iota
	set
	del
)

// usage is one recorded reference to a name, in the order it was encountered
// while walking the scope's source.
type usage struct {
	name string
	kind kind
}

// scope is one node of the scope tree: the module root, or the body of a
// function/class definition. Only def and class bodies get their own scope —
// every other compound statement (if, while, for, try, with) extends the
// scope it appears in.
type scope struct {
	parent  *scope
	isClass bool
	usages  []usage
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent}
}

func (s *scope) record(name string, k kind) {
	s.usages = append(s.usages, usage{name: name, kind: k})
}

// setAnywhere reports whether this scope assigns name at any point in its
// source, independent of order — used when resolving a closure's free
// variables against an ancestor scope, where definition order doesn't matter.
func (s *scope) setAnywhere(name string) bool {
	for _, u := range s.usages {
		if u.kind == set && u.name == name {
			return true
		}
	}
	return false
}

// missingVars replays this scope's usages in source order and returns every
// name that is read (or deleted) before it has been set locally and is not
// bound by any enclosing scope — the scope's free variables.
//
// Within the scope itself, order matters: a read before the matching set
// counts as free (use-before-def). Across scope boundaries it does not: a
// closure may read a name its enclosing function sets anywhere in its body,
// even below the nested def.
func (s *scope) missingVars() map[string]struct{} {
	locallySet := make(map[string]struct{})
	missing := make(map[string]struct{})

	for _, u := range s.usages {
		switch u.kind {
		case set:
			locallySet[u.name] = struct{}{}
		case del:
			if _, ok := locallySet[u.name]; ok {
				delete(locallySet, u.name)
				continue
			}
			if s.boundByAncestor(u.name) {
				continue
			}
			missing[u.name] = struct{}{}
		case read:
			if _, ok := locallySet[u.name]; ok {
				continue
			}
			if s.boundByAncestor(u.name) {
				continue
			}
			missing[u.name] = struct{}{}
		}
	}
	return missing
}

// boundByAncestor reports whether an enclosing scope sets name. A class
// body's scope is transparent to this lookup: Python does not let a nested
// function close over its enclosing class's attributes, only over
// enclosing function/module scopes, so a class-scope ancestor is skipped
// without stopping the walk toward its own parent.
func (s *scope) boundByAncestor(name string) bool {
	for p := s.parent; p != nil; p = p.parent {
		if p.isClass {
			continue
		}
		if p.setAnywhere(name) {
			return true
		}
	}
	return false
}

// topLevelWrites returns every name the root scope sets, which become the
// cell's declared writes.
func (s *scope) topLevelWrites() map[string]struct{} {
	out := make(map[string]struct{})
	for _, u := range s.usages {
		if u.kind == set {
			out[u.name] = struct{}{}
		}
	}
	return out
}
