package entities

import (
	"strings"
)

// City belongs to exactly one state and owns places
type City struct {
	Base
	StateID string `json:"state_id" db:"state_id"`
	Name    string `json:"name" db:"name"`
}

// NewCity creates a city under the given state
func NewCity(stateID, name string) *City {
	return &City{Base: NewBase(), StateID: stateID, Name: name}
}

func (c *City) Kind() Kind { return KindCity }

func (c *City) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return missing("name")
	}
	if c.StateID == "" {
		return missing("state_id")
	}
	if tooLong(c.Name, MaxStringLength) {
		return invalid("name")
	}
	return nil
}

func (c *City) Clone() Entity {
	cp := *c
	return &cp
}

func (c *City) References() map[string]string {
	return map[string]string{"state_id": c.StateID}
}

// CityInput is the client payload for a city. state_id comes from the route
// on creation and is never updated.
type CityInput struct {
	Name *string `json:"name"`
}

func (in *CityInput) MissingForCreate() string {
	if in.Name == nil {
		return "name"
	}
	return ""
}

func (in *CityInput) Apply(e Entity) error {
	c, ok := e.(*City)
	if !ok {
		return kindMismatch(KindCity, e)
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	return nil
}
