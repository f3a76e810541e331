package entities

import (
	"strings"
)

// Amenity can be linked to any number of places
type Amenity struct {
	Base
	Name string `json:"name" db:"name"`
}

// NewAmenity creates an amenity with a fresh identity
func NewAmenity(name string) *Amenity {
	return &Amenity{Base: NewBase(), Name: name}
}

func (a *Amenity) Kind() Kind { return KindAmenity }

func (a *Amenity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return missing("name")
	}
	if tooLong(a.Name, MaxStringLength) {
		return invalid("name")
	}
	return nil
}

func (a *Amenity) Clone() Entity {
	c := *a
	return &c
}

func (a *Amenity) References() map[string]string { return nil }

// AmenityInput is the client payload for an amenity
type AmenityInput struct {
	Name *string `json:"name"`
}

func (in *AmenityInput) MissingForCreate() string {
	if in.Name == nil {
		return "name"
	}
	return ""
}

func (in *AmenityInput) Apply(e Entity) error {
	a, ok := e.(*Amenity)
	if !ok {
		return kindMismatch(KindAmenity, e)
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	return nil
}
