package pex

import "fmt"

// State is a named set of functions. The empty state holds the functions
// that are active when no other state is.
type State struct {
	Name      *TString
	Functions []*Function
}

// Function returns the state's function named name (case-insensitive).
func (s *State) Function(name string) *Function {
	for _, f := range s.Functions {
		if f.Name.EqualFold(name) {
			return f
		}
	}
	return nil
}

func (s *State) size() int {
	n := refSize + countSize
	for _, f := range s.Functions {
		n += refSize + f.bodySize()
	}
	return n
}

func (s *State) encode(w *writer) {
	w.ref(s.Name)
	w.count(len(s.Functions), "function")
	for _, f := range s.Functions {
		w.ref(f.Name)
		f.encodeBody(w)
	}
}

func readState(r *reader) (*State, error) {
	name, err := r.ref()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	fns, err := readList(r, "function", readNamedFunction)
	if err != nil {
		return nil, fmt.Errorf("state %q: %w", name, err)
	}
	return &State{Name: name, Functions: fns}, nil
}
