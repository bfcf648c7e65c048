package naming

// Scope is a namespace in which every claimed identifier is unique. A scope
// may have a parent whose names are also considered taken, which is how a
// class body avoids shadowing module level names.
type Scope struct {
	parent *Scope
	names  map[string]struct{}
}

// NewScope returns an empty scope nested in parent (which may be nil).
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, names: make(map[string]struct{})}
}

// Reserve marks names as taken without resolution.
func (s *Scope) Reserve(names ...string) {
	for _, n := range names {
		s.names[n] = struct{}{}
	}
}

// Taken reports whether name is used in this scope or any parent.
func (s *Scope) Taken(name string) bool {
	for sc := s; sc != nil; sc = sc.parent {
		if _, ok := sc.names[name]; ok {
			return true
		}
	}
	return false
}
