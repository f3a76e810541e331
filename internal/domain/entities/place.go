package entities

import (
	"slices"
	"strings"
)

// Place is a rental listed by a user in a city
type Place struct {
	Base
	CityID          string   `json:"city_id" db:"city_id"`
	UserID          string   `json:"user_id" db:"user_id"`
	Name            string   `json:"name" db:"name"`
	Description     string   `json:"description" db:"description"`
	NumberRooms     int      `json:"number_rooms" db:"number_rooms"`
	NumberBathrooms int      `json:"number_bathrooms" db:"number_bathrooms"`
	MaxGuest        int      `json:"max_guest" db:"max_guest"`
	PriceByNight    int      `json:"price_by_night" db:"price_by_night"`
	Latitude        float64  `json:"latitude" db:"latitude"`
	Longitude       float64  `json:"longitude" db:"longitude"`
	AmenityIDs      []string `json:"amenity_ids" db:"-"`
}

// NewPlace creates a place owned by userID in cityID
func NewPlace(cityID, userID, name string) *Place {
	return &Place{Base: NewBase(), CityID: cityID, UserID: userID, Name: name, AmenityIDs: []string{}}
}

func (p *Place) Kind() Kind { return KindPlace }

func (p *Place) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return missing("name")
	case p.CityID == "":
		return missing("city_id")
	case p.UserID == "":
		return missing("user_id")
	case tooLong(p.Name, MaxStringLength):
		return invalid("name")
	case tooLong(p.Description, MaxTextLength):
		return invalid("description")
	}
	for _, n := range []struct {
		field string
		value int
	}{
		{"number_rooms", p.NumberRooms},
		{"number_bathrooms", p.NumberBathrooms},
		{"max_guest", p.MaxGuest},
		{"price_by_night", p.PriceByNight},
	} {
		if n.value < 0 {
			return invalid(n.field)
		}
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return invalid("latitude")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return invalid("longitude")
	}
	return nil
}

func (p *Place) Clone() Entity {
	c := *p
	c.AmenityIDs = slices.Clone(p.AmenityIDs)
	if c.AmenityIDs == nil {
		c.AmenityIDs = []string{}
	}
	return &c
}

func (p *Place) References() map[string]string {
	return map[string]string{"city_id": p.CityID, "user_id": p.UserID}
}

// HasAmenity reports whether the amenity is linked to the place
func (p *Place) HasAmenity(amenityID string) bool {
	return slices.Contains(p.AmenityIDs, amenityID)
}

// LinkAmenity adds the amenity if it is not linked yet
func (p *Place) LinkAmenity(amenityID string) bool {
	if p.HasAmenity(amenityID) {
		return false
	}
	p.AmenityIDs = append(p.AmenityIDs, amenityID)
	return true
}

// UnlinkAmenity removes the amenity, reporting whether it was linked
func (p *Place) UnlinkAmenity(amenityID string) bool {
	i := slices.Index(p.AmenityIDs, amenityID)
	if i < 0 {
		return false
	}
	p.AmenityIDs = slices.Delete(p.AmenityIDs, i, i+1)
	return true
}

// PlaceInput is the client payload for a place. city_id and user_id are set
// once at creation.
type PlaceInput struct {
	UserID          *string  `json:"user_id"`
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	NumberRooms     *int     `json:"number_rooms"`
	NumberBathrooms *int     `json:"number_bathrooms"`
	MaxGuest        *int     `json:"max_guest"`
	PriceByNight    *int     `json:"price_by_night"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

func (in *PlaceInput) MissingForCreate() string {
	switch {
	case in.UserID == nil:
		return "user_id"
	case in.Name == nil:
		return "name"
	}
	return ""
}

func (in *PlaceInput) Apply(e Entity) error {
	p, ok := e.(*Place)
	if !ok {
		return kindMismatch(KindPlace, e)
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.NumberRooms != nil {
		p.NumberRooms = *in.NumberRooms
	}
	if in.NumberBathrooms != nil {
		p.NumberBathrooms = *in.NumberBathrooms
	}
	if in.MaxGuest != nil {
		p.MaxGuest = *in.MaxGuest
	}
	if in.PriceByNight != nil {
		p.PriceByNight = *in.PriceByNight
	}
	if in.Latitude != nil {
		p.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		p.Longitude = *in.Longitude
	}
	return nil
}
