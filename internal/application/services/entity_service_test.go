package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/adapters/filestore"
	"github.com/zatekoja/hbnb/internal/application/services"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/providers"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func str(s string) *string { return &s }

func newEntityService(t *testing.T) *services.EntityService {
	t.Helper()
	store := filestore.NewFileStorage(filepath.Join(t.TempDir(), "file.json"), nil)
	require.NoError(t, store.Reload(context.Background()))
	svc := services.NewEntityService(store)
	svc.SetPasswordCost(bcrypt.MinCost)
	return svc
}

type fixture struct {
	state entities.Entity
	city  entities.Entity
	user  entities.Entity
	place entities.Entity
}

func seed(t *testing.T, svc *services.EntityService) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.state, err = svc.Create(ctx, entities.KindState, "", &entities.StateInput{Name: str("California")})
	require.NoError(t, err)
	f.city, err = svc.Create(ctx, entities.KindCity, f.state.GetBase().ID, &entities.CityInput{Name: str("San Francisco")})
	require.NoError(t, err)
	f.user, err = svc.Create(ctx, entities.KindUser, "", &entities.UserInput{Email: str("host@hbnb.io"), Password: str("secret")})
	require.NoError(t, err)
	f.place, err = svc.Create(ctx, entities.KindPlace, f.city.GetBase().ID, &entities.PlaceInput{
		UserID: str(f.user.GetBase().ID),
		Name:   str("Loft"),
	})
	require.NoError(t, err)
	return f
}

func TestEntityService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)

	got, err := svc.Get(ctx, entities.KindCity, f.city.GetBase().ID)
	require.NoError(t, err)
	city := got.(*entities.City)
	assert.Equal(t, "San Francisco", city.Name)
	assert.Equal(t, f.state.GetBase().ID, city.StateID)

	_, err = svc.Get(ctx, entities.KindCity, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEntityService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)
	placeID := f.place.GetBase().ID
	cityID := f.city.GetBase().ID

	tests := []struct {
		name    string
		kind    entities.Kind
		parent  string
		in      entities.Input
		check   func(error) bool
		message string
	}{
		{"state without name", entities.KindState, "", &entities.StateInput{}, apperrors.IsValidation, "Missing name"},
		{"city under missing state", entities.KindCity, "nope", &entities.CityInput{Name: str("X")}, apperrors.IsNotFound, "Not found"},
		{"user without password", entities.KindUser, "", &entities.UserInput{Email: str("a@b.c")}, apperrors.IsValidation, "Missing password"},
		{"place without user", entities.KindPlace, cityID, &entities.PlaceInput{Name: str("X")}, apperrors.IsValidation, "Missing user_id"},
		{"place with unknown user", entities.KindPlace, cityID, &entities.PlaceInput{UserID: str("ghost"), Name: str("X")}, apperrors.IsNotFound, "Not found"},
		{"place without name before user lookup", entities.KindPlace, cityID, &entities.PlaceInput{UserID: str("ghost")}, apperrors.IsValidation, "Missing name"},
		{"review without text before user lookup", entities.KindReview, placeID, &entities.ReviewInput{UserID: str("ghost")}, apperrors.IsValidation, "Missing text"},
		{"place without name", entities.KindPlace, cityID, &entities.PlaceInput{UserID: str(f.user.GetBase().ID)}, apperrors.IsValidation, "Missing name"},
		{"review without text", entities.KindReview, placeID, &entities.ReviewInput{UserID: str(f.user.GetBase().ID)}, apperrors.IsValidation, "Missing text"},
		{"review under missing place", entities.KindReview, "nope", &entities.ReviewInput{}, apperrors.IsNotFound, "Not found"},
		{"empty state name", entities.KindState, "", &entities.StateInput{Name: str(" ")}, apperrors.IsValidation, "Missing name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.kind, tt.parent, tt.in)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestEntityService_Uniqueness(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	seed(t, svc)

	_, err := svc.Create(ctx, entities.KindState, "", &entities.StateInput{Name: str("california")})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Create(ctx, entities.KindUser, "", &entities.UserInput{Email: str("HOST@hbnb.io"), Password: str("x")})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Create(ctx, entities.KindAmenity, "", &entities.AmenityInput{Name: str("Wifi")})
	require.NoError(t, err)
	other, err := svc.Create(ctx, entities.KindAmenity, "", &entities.AmenityInput{Name: str("Pool")})
	require.NoError(t, err)
	_, err = svc.Update(ctx, entities.KindAmenity, other.GetBase().ID, &entities.AmenityInput{Name: str("WIFI")})
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Update(ctx, entities.KindAmenity, other.GetBase().ID, &entities.AmenityInput{Name: str("Pool")})
	assert.NoError(t, err, "renaming to its own name is not a conflict")
}

func TestEntityService_PasswordIsHashed(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)

	user := f.user.(*entities.User)
	assert.NotEqual(t, "secret", user.Password)
	assert.True(t, services.CheckPassword(user, "secret"))

	updated, err := svc.Update(ctx, entities.KindUser, user.ID, &entities.UserInput{
		Email:    str("changed@hbnb.io"),
		Password: str("rotated"),
	})
	require.NoError(t, err)
	u := updated.(*entities.User)
	assert.Equal(t, "host@hbnb.io", u.Email, "email is fixed after creation")
	assert.True(t, services.CheckPassword(u, "rotated"))
}

func TestEntityService_UpdateKeepsParents(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)

	in := &entities.PlaceInput{UserID: str("someone-else"), Name: str("Penthouse"), MaxGuest: intPtr(6)}
	updated, err := svc.Update(ctx, entities.KindPlace, f.place.GetBase().ID, in)
	require.NoError(t, err)

	place := updated.(*entities.Place)
	assert.Equal(t, "Penthouse", place.Name)
	assert.Equal(t, 6, place.MaxGuest)
	assert.Equal(t, f.user.GetBase().ID, place.UserID)
	assert.Equal(t, f.city.GetBase().ID, place.CityID)
	assert.True(t, place.CreatedAt.Equal(f.place.GetBase().CreatedAt))
}

func intPtr(n int) *int { return &n }

func TestEntityService_ListChildrenAndCascade(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)
	stateID := f.state.GetBase().ID

	_, err := svc.Create(ctx, entities.KindCity, stateID, &entities.CityInput{Name: str("Oakland")})
	require.NoError(t, err)

	cities, err := svc.ListChildren(ctx, entities.KindState, stateID, entities.KindCity)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	assert.Equal(t, "San Francisco", cities[0].(*entities.City).Name)

	_, err = svc.ListChildren(ctx, entities.KindState, "missing", entities.KindCity)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.Delete(ctx, entities.KindState, stateID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"states": 0, "cities": 0, "amenities": 0, "users": 1, "places": 0, "reviews": 0,
	}, stats)

	assert.True(t, apperrors.IsNotFound(svc.Delete(ctx, entities.KindState, stateID)))
}

func TestEntityService_AmenityLinks(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	f := seed(t, svc)
	placeID := f.place.GetBase().ID

	wifi, err := svc.Create(ctx, entities.KindAmenity, "", &entities.AmenityInput{Name: str("Wifi")})
	require.NoError(t, err)
	wifiID := wifi.GetBase().ID

	_, created, err := svc.LinkAmenity(ctx, placeID, wifiID)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.LinkAmenity(ctx, placeID, wifiID)
	require.NoError(t, err)
	assert.False(t, created)

	linked, err := svc.PlaceAmenities(ctx, placeID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, wifiID, linked[0].GetBase().ID)

	require.NoError(t, svc.UnlinkAmenity(ctx, placeID, wifiID))
	assert.True(t, apperrors.IsNotFound(svc.UnlinkAmenity(ctx, placeID, wifiID)))

	_, _, err = svc.LinkAmenity(ctx, placeID, "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestEntityService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	svc := newEntityService(t)
	bus := NewMockEventBus()
	svc.SetEventBus(bus)

	state, err := svc.Create(ctx, entities.KindState, "", &entities.StateInput{Name: str("Nevada")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, entities.KindState, state.GetBase().ID))

	events := bus.Published(providers.EventChannelEntities)
	require.Len(t, events, 2)
	assert.Equal(t, entities.EntityEventCreated, events[0].EventType)
	assert.Equal(t, entities.EntityEventDeleted, events[1].EventType)
	assert.Equal(t, state.GetBase().ID, events[1].EntityID)
	assert.Len(t, bus.Published(providers.GetKindChannel(entities.KindState)), 2)
}
