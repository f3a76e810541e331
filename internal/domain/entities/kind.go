package entities

import (
	"fmt"
)

// Kind identifies one of the six entity types
type Kind int

const (
	KindState Kind = iota + 1
	KindCity
	KindAmenity
	KindUser
	KindPlace
	KindReview
)

var allKinds = []Kind{KindState, KindCity, KindAmenity, KindUser, KindPlace, KindReview}

// Kinds returns every kind in dependency order (parents before children)
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// String returns the class name used in keys and in the __class__ discriminator
func (k Kind) String() string {
	switch k {
	case KindState:
		return "State"
	case KindCity:
		return "City"
	case KindAmenity:
		return "Amenity"
	case KindUser:
		return "User"
	case KindPlace:
		return "Place"
	case KindReview:
		return "Review"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Plural returns the collection name used for tables and stats
func (k Kind) Plural() string {
	switch k {
	case KindState:
		return "states"
	case KindCity:
		return "cities"
	case KindAmenity:
		return "amenities"
	case KindUser:
		return "users"
	case KindPlace:
		return "places"
	case KindReview:
		return "reviews"
	default:
		return ""
	}
}

// Valid reports whether k is one of the six kinds
func (k Kind) Valid() bool {
	return k >= KindState && k <= KindReview
}

// ParseKind maps a class name back to its Kind
func ParseKind(name string) (Kind, error) {
	for _, k := range allKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", name)
}

// ParsePlural maps a collection name such as "states" to its Kind
func ParsePlural(plural string) (Kind, error) {
	for _, k := range allKinds {
		if k.Plural() == plural {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown collection %q", plural)
}

// Zero returns an empty entity of kind k, ready to be decoded into
func (k Kind) Zero() Entity {
	switch k {
	case KindState:
		return &State{}
	case KindCity:
		return &City{}
	case KindAmenity:
		return &Amenity{}
	case KindUser:
		return &User{}
	case KindPlace:
		return &Place{}
	case KindReview:
		return &Review{}
	default:
		return nil
	}
}

// NewInput returns an empty client payload for kind k
func (k Kind) NewInput() Input {
	switch k {
	case KindState:
		return &StateInput{}
	case KindCity:
		return &CityInput{}
	case KindAmenity:
		return &AmenityInput{}
	case KindUser:
		return &UserInput{}
	case KindPlace:
		return &PlaceInput{}
	case KindReview:
		return &ReviewInput{}
	default:
		return nil
	}
}

// Relation describes a child kind holding a foreign key to a parent kind
type Relation struct {
	Child  Kind
	Column string
}

// Children lists the relations removed in cascade when an entity of kind k is deleted
func (k Kind) Children() []Relation {
	switch k {
	case KindState:
		return []Relation{{Child: KindCity, Column: "state_id"}}
	case KindCity:
		return []Relation{{Child: KindPlace, Column: "city_id"}}
	case KindUser:
		return []Relation{
			{Child: KindPlace, Column: "user_id"},
			{Child: KindReview, Column: "user_id"},
		}
	case KindPlace:
		return []Relation{{Child: KindReview, Column: "place_id"}}
	default:
		return nil
	}
}
