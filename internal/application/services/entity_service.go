package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// NotFoundMessage is the message of every missing-resource error
const NotFoundMessage = "Not found"

// EntityService implements the use cases behind the REST API. Every call
// runs in its own storage session.
type EntityService struct {
	backend      repositories.Backend
	eventBus     providers.EventBus
	passwordCost int
}

// NewEntityService creates a new entity service
func NewEntityService(backend repositories.Backend) *EntityService {
	return &EntityService{
		backend:      backend,
		passwordCost: bcrypt.DefaultCost,
	}
}

// SetEventBus enables publishing of committed changes
func (s *EntityService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetPasswordCost overrides the bcrypt cost
func (s *EntityService) SetPasswordCost(cost int) {
	s.passwordCost = cost
}

func notFound() error {
	return apperrors.NewNotFoundError(NotFoundMessage)
}

func (s *EntityService) fetch(ctx context.Context, session repositories.Storage, kind entities.Kind, id string) (entities.Entity, error) {
	e, err := session.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFound()
	}
	return e, nil
}

// Get returns one entity
func (s *EntityService) Get(ctx context.Context, kind entities.Kind, id string) (entities.Entity, error) {
	session := s.backend.Session()
	defer session.Close()
	return s.fetch(ctx, session, kind, id)
}

// List returns every entity of kind ordered by creation time
func (s *EntityService) List(ctx context.Context, kind entities.Kind) ([]entities.Entity, error) {
	session := s.backend.Session()
	defer session.Close()

	all, err := session.All(ctx, kind)
	if err != nil {
		return nil, err
	}
	return sorted(all, nil), nil
}

// ListChildren returns the children of kind child held by a parent
func (s *EntityService) ListChildren(ctx context.Context, parent entities.Kind, parentID string, child entities.Kind) ([]entities.Entity, error) {
	column, err := relationColumn(parent, child)
	if err != nil {
		return nil, err
	}

	session := s.backend.Session()
	defer session.Close()

	if _, err := s.fetch(ctx, session, parent, parentID); err != nil {
		return nil, err
	}

	all, err := session.All(ctx, child)
	if err != nil {
		return nil, err
	}
	return sorted(all, func(e entities.Entity) bool {
		return e.References()[column] == parentID
	}), nil
}

// Create builds an entity of kind from in. parentID names the owning State,
// City or Place for cities, places and reviews and is ignored otherwise.
func (s *EntityService) Create(ctx context.Context, kind entities.Kind, parentID string, in entities.Input) (entities.Entity, error) {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.build(ctx, session, kind, parentID, in)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, session, e); err != nil {
		return nil, err
	}

	session.New(e)
	if err := session.Save(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, e, entities.EntityEventCreated)
	return e, nil
}

func (s *EntityService) build(ctx context.Context, session repositories.Storage, kind entities.Kind, parentID string, in entities.Input) (entities.Entity, error) {
	missing := in.MissingForCreate()
	base := entities.NewBase()

	var e entities.Entity
	switch kind {
	case entities.KindState:
		e = &entities.State{Base: base}
	case entities.KindAmenity:
		e = &entities.Amenity{Base: base}
	case entities.KindCity:
		if _, err := s.fetch(ctx, session, entities.KindState, parentID); err != nil {
			return nil, err
		}
		e = &entities.City{Base: base, StateID: parentID}
	case entities.KindUser:
		if missing != "" {
			return nil, apperrors.NewValidationError("Missing " + missing)
		}
		e = &entities.User{Base: base, Email: *in.(*entities.UserInput).Email}
	case entities.KindPlace:
		if _, err := s.fetch(ctx, session, entities.KindCity, parentID); err != nil {
			return nil, err
		}
		userID, err := s.requireUser(ctx, session, missing, in.(*entities.PlaceInput).UserID)
		if err != nil {
			return nil, err
		}
		e = &entities.Place{Base: base, CityID: parentID, UserID: userID, AmenityIDs: []string{}}
	case entities.KindReview:
		if _, err := s.fetch(ctx, session, entities.KindPlace, parentID); err != nil {
			return nil, err
		}
		userID, err := s.requireUser(ctx, session, missing, in.(*entities.ReviewInput).UserID)
		if err != nil {
			return nil, err
		}
		e = &entities.Review{Base: base, PlaceID: parentID, UserID: userID}
	default:
		return nil, apperrors.NewInternalError(fmt.Sprintf("cannot create %s", kind), nil)
	}

	if missing != "" {
		return nil, apperrors.NewValidationError("Missing " + missing)
	}

	in, err := s.hashPassword(in)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(e); err != nil {
		return nil, err
	}
	return e, nil
}

// requireUser checks the user_id of a place or review payload. Every missing
// field is reported before the user lookup.
func (s *EntityService) requireUser(ctx context.Context, session repositories.Storage, missing string, userID *string) (string, error) {
	if missing != "" {
		return "", apperrors.NewValidationError("Missing " + missing)
	}
	if userID == nil {
		return "", apperrors.NewValidationError("Missing user_id")
	}
	if _, err := s.fetch(ctx, session, entities.KindUser, *userID); err != nil {
		return "", err
	}
	return *userID, nil
}

// Update applies in to an existing entity; identity and fixed foreign keys
// are not part of any payload and therefore never change.
func (s *EntityService) Update(ctx context.Context, kind entities.Kind, id string, in entities.Input) (entities.Entity, error) {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.fetch(ctx, session, kind, id)
	if err != nil {
		return nil, err
	}

	in, err = s.hashPassword(in)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(e); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, session, e); err != nil {
		return nil, err
	}

	if err := session.Save(ctx); err != nil {
		return nil, err
	}

	s.publish(ctx, e, entities.EntityEventUpdated)
	return e, nil
}

// Delete removes an entity and, in cascade, what it owns
func (s *EntityService) Delete(ctx context.Context, kind entities.Kind, id string) error {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.fetch(ctx, session, kind, id)
	if err != nil {
		return err
	}

	session.Delete(e)
	if err := session.Save(ctx); err != nil {
		return err
	}

	s.publish(ctx, e, entities.EntityEventDeleted)
	return nil
}

// PlaceAmenities lists the amenities linked to a place
func (s *EntityService) PlaceAmenities(ctx context.Context, placeID string) ([]entities.Entity, error) {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.fetch(ctx, session, entities.KindPlace, placeID)
	if err != nil {
		return nil, err
	}
	place := e.(*entities.Place)

	all, err := session.All(ctx, entities.KindAmenity)
	if err != nil {
		return nil, err
	}
	return sorted(all, func(a entities.Entity) bool {
		return place.HasAmenity(a.GetBase().ID)
	}), nil
}

// LinkAmenity links an amenity to a place. created is false when the link
// already existed.
func (s *EntityService) LinkAmenity(ctx context.Context, placeID, amenityID string) (amenity entities.Entity, created bool, err error) {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.fetch(ctx, session, entities.KindPlace, placeID)
	if err != nil {
		return nil, false, err
	}
	amenity, err = s.fetch(ctx, session, entities.KindAmenity, amenityID)
	if err != nil {
		return nil, false, err
	}

	place := e.(*entities.Place)
	if !place.LinkAmenity(amenityID) {
		return amenity, false, nil
	}
	if err := session.Save(ctx); err != nil {
		return nil, false, err
	}

	s.publish(ctx, place, entities.EntityEventUpdated)
	return amenity, true, nil
}

// UnlinkAmenity removes the link between a place and an amenity
func (s *EntityService) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	session := s.backend.Session()
	defer session.Close()

	e, err := s.fetch(ctx, session, entities.KindPlace, placeID)
	if err != nil {
		return err
	}
	if _, err := s.fetch(ctx, session, entities.KindAmenity, amenityID); err != nil {
		return err
	}

	place := e.(*entities.Place)
	if !place.UnlinkAmenity(amenityID) {
		return notFound()
	}
	if err := session.Save(ctx); err != nil {
		return err
	}

	s.publish(ctx, place, entities.EntityEventUpdated)
	return nil
}

// Stats counts the stored entities per collection
func (s *EntityService) Stats(ctx context.Context) (map[string]int, error) {
	session := s.backend.Session()
	defer session.Close()

	stats := make(map[string]int, len(entities.Kinds()))
	for _, kind := range entities.Kinds() {
		n, err := session.Count(ctx, kind)
		if err != nil {
			return nil, err
		}
		stats[kind.Plural()] = n
	}
	return stats, nil
}

// uniqueField returns the case-insensitively unique attribute of e, if any
func uniqueField(e entities.Entity) (field, value string, ok bool) {
	switch v := e.(type) {
	case *entities.State:
		return "name", v.Name, true
	case *entities.Amenity:
		return "name", v.Name, true
	case *entities.User:
		return "email", v.Email, true
	}
	return "", "", false
}

func (s *EntityService) checkUnique(ctx context.Context, session repositories.Storage, e entities.Entity) error {
	field, value, ok := uniqueField(e)
	if !ok {
		return nil
	}

	all, err := session.All(ctx, e.Kind())
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.GetBase().ID == e.GetBase().ID {
			continue
		}
		if _, otherValue, _ := uniqueField(other); strings.EqualFold(strings.TrimSpace(otherValue), strings.TrimSpace(value)) {
			return apperrors.NewConflictError(fmt.Sprintf("%s with %s %q already exists", e.Kind(), field, value))
		}
	}
	return nil
}

// hashPassword returns a copy of a user payload carrying a bcrypt hash. An
// empty password is left as is so that validation reports it.
func (s *EntityService) hashPassword(in entities.Input) (entities.Input, error) {
	userIn, ok := in.(*entities.UserInput)
	if !ok || userIn.Password == nil || *userIn.Password == "" {
		return in, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*userIn.Password), s.passwordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperrors.NewValidationError("Invalid password")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	hashed := *userIn
	h := string(hash)
	hashed.Password = &h
	return &hashed, nil
}

// CheckPassword reports whether password matches the stored hash of user
func CheckPassword(user *entities.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (s *EntityService) publish(ctx context.Context, e entities.Entity, eventType entities.EntityEventType) {
	if s.eventBus == nil {
		return
	}
	event := entities.NewEntityEvent(e, eventType)
	for _, channel := range []string{providers.EventChannelEntities, providers.GetKindChannel(e.Kind())} {
		if err := s.eventBus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("channel", channel).Str("entity", entities.Key(e)).Msg("failed to publish entity event")
		}
	}
}

func relationColumn(parent, child entities.Kind) (string, error) {
	for _, rel := range parent.Children() {
		if rel.Child == child {
			return rel.Column, nil
		}
	}
	return "", apperrors.NewInternalError(fmt.Sprintf("%s does not own %s", parent, child), nil)
}

func sorted(all map[string]entities.Entity, keep func(entities.Entity) bool) []entities.Entity {
	out := make([]entities.Entity, 0, len(all))
	for _, e := range all {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b entities.Entity) int {
		if c := a.GetBase().CreatedAt.Compare(b.GetBase().CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.GetBase().ID, b.GetBase().ID)
	})
	return out
}
