package entities_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

func TestKind_ParseRoundTrip(t *testing.T) {
	for _, k := range entities.Kinds() {
		parsed, err := entities.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.Plural())
		assert.Equal(t, k, k.Zero().Kind())

		fromPlural, err := entities.ParsePlural(k.Plural())
		require.NoError(t, err)
		assert.Equal(t, k, fromPlural)
	}

	_, err := entities.ParseKind("Stat")
	assert.Error(t, err)
	assert.False(t, entities.Kind(0).Valid())
}

func TestNewBase_GeneratesIdentity(t *testing.T) {
	a := entities.NewState("California")
	b := entities.NewState("California")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.CreatedAt.Equal(a.UpdatedAt))
	assert.Equal(t, "State."+a.ID, entities.Key(a))
}

func TestEncodeDecode_PreservesFields(t *testing.T) {
	place := entities.NewPlace("city-1", "user-1", "Loft")
	place.Description = "Bright loft"
	place.NumberRooms = 2
	place.PriceByNight = 120
	place.Latitude = 37.7749
	place.Longitude = -122.4194
	place.LinkAmenity("amenity-1")

	data, err := entities.Encode(place)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"__class__":"Place"`)

	decoded, err := entities.Decode(data)
	require.NoError(t, err)
	if diff := cmp.Diff(entities.Entity(place), decoded); diff != "" {
		t.Errorf("decoded place mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_RejectsUnknownClass(t *testing.T) {
	_, err := entities.Decode([]byte(`{"__class__":"Country","id":"x"}`))
	assert.Error(t, err)

	_, err = entities.Decode([]byte(`{"__class__":"State","name":"no id"}`))
	assert.Error(t, err)
}

func TestPublicMap_HidesPassword(t *testing.T) {
	user := entities.NewUser("a@b.c", "hash")

	m, err := entities.PublicMap(user)
	require.NoError(t, err)
	assert.NotContains(t, m, "password")
	assert.Equal(t, "User", m[entities.ClassField])
	assert.Equal(t, "a@b.c", m["email"])
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		entity entities.Entity
		want   string
	}{
		{"state name", &entities.State{}, "Missing name"},
		{"city state", &entities.City{Name: "SF"}, "Missing state_id"},
		{"amenity name", &entities.Amenity{Name: "  "}, "Missing name"},
		{"user email", &entities.User{Password: "x"}, "Missing email"},
		{"user password", &entities.User{Email: "a@b.c"}, "Missing password"},
		{"place user", &entities.Place{Name: "Loft", CityID: "c"}, "Missing user_id"},
		{"place latitude", &entities.Place{Name: "Loft", CityID: "c", UserID: "u", Latitude: 91}, "Invalid latitude"},
		{"place rooms", &entities.Place{Name: "Loft", CityID: "c", UserID: "u", NumberRooms: -1}, "Invalid number_rooms"},
		{"review text", &entities.Review{PlaceID: "p", UserID: "u"}, "Missing text"},
		{"state name too long", &entities.State{Name: strings.Repeat("a", entities.MaxStringLength+1)}, "Invalid name"},
		{"user last name too long", &entities.User{Email: "a@b.c", Password: "x", LastName: strings.Repeat("a", entities.MaxStringLength+1)}, "Invalid last_name"},
		{"place description too long", &entities.Place{Name: "Loft", CityID: "c", UserID: "u", Description: strings.Repeat("a", entities.MaxTextLength+1)}, "Invalid description"},
		{"review text too long", &entities.Review{PlaceID: "p", UserID: "u", Text: strings.Repeat("a", entities.MaxTextLength+1)}, "Invalid text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.want, appErr.Message)
		})
	}

	assert.NoError(t, entities.NewReview("p", "u", "Great").Validate())
	// widths count characters, not bytes
	assert.NoError(t, entities.NewState(strings.Repeat("é", entities.MaxStringLength)).Validate())
}

func TestInput_ApplyIgnoresProtectedFields(t *testing.T) {
	user := entities.NewUser("a@b.c", "hash")
	email := "other@b.c"
	first := "Ada"

	in := &entities.UserInput{Email: &email, FirstName: &first}
	require.NoError(t, in.Apply(user))

	assert.Equal(t, "a@b.c", user.Email)
	assert.Equal(t, "Ada", user.FirstName)

	state := entities.NewState("Nevada")
	assert.Error(t, in.Apply(state))
}

func TestInput_MissingForCreate(t *testing.T) {
	name := "Loft"
	assert.Equal(t, "user_id", (&entities.PlaceInput{Name: &name}).MissingForCreate())
	assert.Equal(t, "email", (&entities.UserInput{}).MissingForCreate())
	assert.Equal(t, "", (&entities.StateInput{Name: &name}).MissingForCreate())
}

func TestPlace_AmenityLinks(t *testing.T) {
	place := entities.NewPlace("c", "u", "Loft")

	assert.True(t, place.LinkAmenity("a1"))
	assert.False(t, place.LinkAmenity("a1"))
	assert.True(t, place.HasAmenity("a1"))

	clone := place.Clone().(*entities.Place)
	clone.LinkAmenity("a2")
	assert.False(t, place.HasAmenity("a2"))

	assert.True(t, place.UnlinkAmenity("a1"))
	assert.False(t, place.UnlinkAmenity("a1"))
}

func TestKind_Children(t *testing.T) {
	assert.Equal(t, []entities.Relation{{Child: entities.KindCity, Column: "state_id"}}, entities.KindState.Children())
	assert.Len(t, entities.KindUser.Children(), 2)
	assert.Empty(t, entities.KindAmenity.Children())
	assert.Empty(t, entities.KindReview.Children())
}
