package entities

import (
	"strings"
)

// State represents a state that owns cities
type State struct {
	Base
	Name string `json:"name" db:"name"`
}

// NewState creates a state with a fresh identity
func NewState(name string) *State {
	return &State{Base: NewBase(), Name: name}
}

func (s *State) Kind() Kind { return KindState }

func (s *State) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return missing("name")
	}
	if tooLong(s.Name, MaxStringLength) {
		return invalid("name")
	}
	return nil
}

func (s *State) Clone() Entity {
	c := *s
	return &c
}

func (s *State) References() map[string]string { return nil }

// StateInput is the client payload for creating or updating a state
type StateInput struct {
	Name *string `json:"name"`
}

// MissingForCreate returns the first required field absent from the payload
func (in *StateInput) MissingForCreate() string {
	if in.Name == nil {
		return "name"
	}
	return ""
}

// Apply copies the supplied fields onto a state
func (in *StateInput) Apply(e Entity) error {
	s, ok := e.(*State)
	if !ok {
		return kindMismatch(KindState, e)
	}
	if in.Name != nil {
		s.Name = *in.Name
	}
	return nil
}
