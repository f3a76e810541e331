package database

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/hbnb/internal/domain/entities"
)

// record maps an entity to its row. Identity columns are included; callers
// drop them for updates.
func record(e entities.Entity) (goqu.Record, error) {
	base := e.GetBase()
	r := goqu.Record{
		"id":         base.ID,
		"created_at": base.CreatedAt,
		"updated_at": base.UpdatedAt,
	}

	switch v := e.(type) {
	case *entities.State:
		r["name"] = v.Name
	case *entities.City:
		r["state_id"] = v.StateID
		r["name"] = v.Name
	case *entities.Amenity:
		r["name"] = v.Name
	case *entities.User:
		r["email"] = v.Email
		r["password"] = v.Password
		r["first_name"] = v.FirstName
		r["last_name"] = v.LastName
	case *entities.Place:
		r["city_id"] = v.CityID
		r["user_id"] = v.UserID
		r["name"] = v.Name
		r["description"] = v.Description
		r["number_rooms"] = v.NumberRooms
		r["number_bathrooms"] = v.NumberBathrooms
		r["max_guest"] = v.MaxGuest
		r["price_by_night"] = v.PriceByNight
		r["latitude"] = v.Latitude
		r["longitude"] = v.Longitude
	case *entities.Review:
		r["place_id"] = v.PlaceID
		r["user_id"] = v.UserID
		r["text"] = v.Text
	default:
		return nil, fmt.Errorf("no table for %T", e)
	}
	return r, nil
}

func updateRecord(e entities.Entity) (goqu.Record, error) {
	r, err := record(e)
	if err != nil {
		return nil, err
	}
	delete(r, "id")
	delete(r, "created_at")
	return r, nil
}

// scanRows runs query and scans every row into a T
func scanRows[T any, P interface {
	*T
	entities.Entity
}](ctx context.Context, q sqlx.QueryerContext, query string, args []any) ([]entities.Entity, error) {
	var rows []T
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]entities.Entity, len(rows))
	for i := range rows {
		e := P(&rows[i])
		base := e.GetBase()
		base.CreatedAt = base.CreatedAt.UTC()
		base.UpdatedAt = base.UpdatedAt.UTC()
		out[i] = e
	}
	return out, nil
}

func scanKind(ctx context.Context, q sqlx.QueryerContext, kind entities.Kind, query string, args []any) ([]entities.Entity, error) {
	switch kind {
	case entities.KindState:
		return scanRows[entities.State](ctx, q, query, args)
	case entities.KindCity:
		return scanRows[entities.City](ctx, q, query, args)
	case entities.KindAmenity:
		return scanRows[entities.Amenity](ctx, q, query, args)
	case entities.KindUser:
		return scanRows[entities.User](ctx, q, query, args)
	case entities.KindPlace:
		return scanRows[entities.Place](ctx, q, query, args)
	case entities.KindReview:
		return scanRows[entities.Review](ctx, q, query, args)
	default:
		return nil, fmt.Errorf("unknown kind %s", kind)
	}
}
