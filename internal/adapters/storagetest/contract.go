// Package storagetest holds the behaviour every storage backend must share.
// Backend test packages call Run with an opener for their own engine.
package storagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/domain/repositories"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

// Opener returns a reloaded backend over the same durable store each call
type Opener func() repositories.Backend

// Factory prepares an empty durable store for one test
type Factory func(t *testing.T) Opener

// Run executes the shared contract against the backend built by factory
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, open Opener)
	}{
		{"create then get", testCreateGet},
		{"staged work invisible until save", testStagedInvisible},
		{"delete then get absent", testDeleteGet},
		{"count matches all", testCountMatchesAll},
		{"reload is idempotent", testReloadIdempotent},
		{"round trip through fresh backend", testRoundTrip},
		{"update persists and touches", testUpdate},
		{"identity fields protected", testIdentityProtected},
		{"california", testCalifornia},
		{"unknown id absent", testUnknownID},
		{"state cascade removes cities", testStateCascade},
		{"user cascade removes places and reviews", testUserCascade},
		{"amenity delete removes links", testAmenityUnlink},
		{"missing reference rejected", testMissingReference},
		{"invalid entity rejected", testInvalidRejected},
		{"over-long fields rejected", testOverlongRejected},
		{"place update keeps links changed elsewhere", testLinksChangedElsewhere},
		{"concurrent saves", testConcurrentSaves},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, factory(t))
		})
	}
}

func save(t *testing.T, s repositories.Storage, items ...entities.Entity) {
	t.Helper()
	for _, e := range items {
		s.New(e)
	}
	require.NoError(t, s.Save(context.Background()))
}

func diff(t *testing.T, want, got any) {
	t.Helper()
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("mismatch (-want +got):\n%s", d)
	}
}

// graph is a small consistent fixture covering every kind
type graph struct {
	state   *entities.State
	city    *entities.City
	amenity *entities.Amenity
	user    *entities.User
	place   *entities.Place
	review  *entities.Review
}

func newGraph() graph {
	g := graph{}
	g.state = entities.NewState("California")
	g.city = entities.NewCity(g.state.ID, "San Francisco")
	g.amenity = entities.NewAmenity("Wifi")
	g.user = entities.NewUser("host@hbnb.io", "hashed")
	g.user.FirstName = "Betty"
	g.place = entities.NewPlace(g.city.ID, g.user.ID, "Loft")
	g.place.NumberRooms = 2
	g.place.PriceByNight = 150
	g.place.Latitude = 37.77
	g.place.Longitude = -122.41
	g.place.LinkAmenity(g.amenity.ID)
	g.review = entities.NewReview(g.place.ID, g.user.ID, "Great stay")
	return g
}

func (g graph) all() []entities.Entity {
	return []entities.Entity{g.review, g.place, g.user, g.amenity, g.city, g.state}
}

func testCreateGet(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	s := b.Session()
	defer s.Close()
	for _, want := range g.all() {
		got, err := s.Get(ctx, want.Kind(), want.GetBase().ID)
		require.NoError(t, err)
		require.NotNil(t, got, want.Kind().String())
		diff(t, want, got)
		assert.NotSame(t, want, got)
	}
}

func testStagedInvisible(t *testing.T, open Opener) {
	ctx := context.Background()
	s := open().Session()
	state := entities.NewState("Nevada")
	s.New(state)

	got, err := s.Get(ctx, entities.KindState, state.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.Count(ctx, entities.KindState)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Save(ctx))
	n, err = s.Count(ctx, entities.KindState)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testDeleteGet(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	amenity := entities.NewAmenity("Pool")
	save(t, b.Session(), amenity)

	s := b.Session()
	loaded, err := s.Get(ctx, entities.KindAmenity, amenity.ID)
	require.NoError(t, err)
	s.Delete(loaded)
	s.Delete(nil)
	require.NoError(t, s.Save(ctx))

	got, err := b.Session().Get(ctx, entities.KindAmenity, amenity.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testCountMatchesAll(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)
	save(t, b.Session(), entities.NewState("Oregon"), entities.NewAmenity("Heating"))

	s := b.Session()
	for _, kinds := range [][]entities.Kind{
		nil,
		{entities.KindState},
		{entities.KindAmenity},
		{entities.KindState, entities.KindCity},
		{entities.KindReview},
	} {
		all, err := s.All(ctx, kinds...)
		require.NoError(t, err)
		n, err := s.Count(ctx, kinds...)
		require.NoError(t, err)
		assert.Equal(t, len(all), n, "kinds %v", kinds)
	}

	total, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
}

func testReloadIdempotent(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	require.NoError(t, b.Reload(ctx))
	first, err := b.Session().All(ctx)
	require.NoError(t, err)

	require.NoError(t, b.Reload(ctx))
	second, err := b.Session().All(ctx)
	require.NoError(t, err)

	diff(t, first, second)
	assert.Len(t, second, len(g.all()))
}

func testRoundTrip(t *testing.T, open Opener) {
	ctx := context.Background()
	g := newGraph()
	save(t, open().Session(), g.all()...)

	fresh := open()
	got, err := fresh.Session().All(ctx)
	require.NoError(t, err)

	want := map[string]entities.Entity{}
	for _, e := range g.all() {
		want[entities.Key(e)] = e
	}
	diff(t, want, got)
}

func testUpdate(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	s := b.Session()
	loaded, err := s.Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	place := loaded.(*entities.Place)
	before := place.UpdatedAt
	place.Name = "Penthouse"
	place.UnlinkAmenity(g.amenity.ID)
	require.NoError(t, s.Save(ctx))

	got, err := b.Session().Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	updated := got.(*entities.Place)
	assert.Equal(t, "Penthouse", updated.Name)
	assert.Empty(t, updated.AmenityIDs)
	assert.False(t, updated.UpdatedAt.Before(before))
	assert.True(t, updated.CreatedAt.Equal(g.place.CreatedAt))
}

func testIdentityProtected(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	state := entities.NewState("Texas")
	save(t, b.Session(), state)

	s := b.Session()
	loaded, err := s.Get(ctx, entities.KindState, state.ID)
	require.NoError(t, err)
	loaded.GetBase().ID = "hijacked"
	err = s.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	s = b.Session()
	loaded, err = s.Get(ctx, entities.KindState, state.ID)
	require.NoError(t, err)
	loaded.GetBase().CreatedAt = loaded.GetBase().CreatedAt.Add(-1)
	require.Error(t, s.Save(ctx))

	got, err := b.Session().Get(ctx, entities.KindState, state.ID)
	require.NoError(t, err)
	diff(t, entities.Entity(state), got)
}

func testCalifornia(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	s := b.Session()

	before, err := s.Count(ctx, entities.KindState)
	require.NoError(t, err)

	state := entities.NewState("California")
	save(t, s, state)

	all, err := b.Session().All(ctx, entities.KindState)
	require.NoError(t, err)
	require.Contains(t, all, "State."+state.ID)
	assert.Equal(t, "California", all["State."+state.ID].(*entities.State).Name)

	after, err := b.Session().Count(ctx, entities.KindState)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func testUnknownID(t *testing.T, open Opener) {
	ctx := context.Background()
	s := open().Session()

	got, err := s.Get(ctx, entities.KindState, "doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.Get(ctx, entities.KindState, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testStateCascade(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	s := b.Session()
	state, err := s.Get(ctx, entities.KindState, g.state.ID)
	require.NoError(t, err)
	s.Delete(state)
	require.NoError(t, s.Save(ctx))

	s = b.Session()
	for _, gone := range []entities.Entity{g.state, g.city, g.place, g.review} {
		got, err := s.Get(ctx, gone.Kind(), gone.GetBase().ID)
		require.NoError(t, err)
		assert.Nil(t, got, "%s should be removed", gone.Kind())
	}
	for _, kept := range []entities.Entity{g.user, g.amenity} {
		got, err := s.Get(ctx, kept.Kind(), kept.GetBase().ID)
		require.NoError(t, err)
		assert.NotNil(t, got, "%s should be kept", kept.Kind())
	}
}

func testUserCascade(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	s := b.Session()
	user, err := s.Get(ctx, entities.KindUser, g.user.ID)
	require.NoError(t, err)
	s.Delete(user)
	require.NoError(t, s.Save(ctx))

	counts := map[entities.Kind]int{}
	for _, k := range entities.Kinds() {
		n, err := b.Session().Count(ctx, k)
		require.NoError(t, err)
		counts[k] = n
	}
	assert.Equal(t, map[entities.Kind]int{
		entities.KindState:   1,
		entities.KindCity:    1,
		entities.KindAmenity: 1,
		entities.KindUser:    0,
		entities.KindPlace:   0,
		entities.KindReview:  0,
	}, counts)
}

func testAmenityUnlink(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	save(t, b.Session(), g.all()...)

	s := b.Session()
	amenity, err := s.Get(ctx, entities.KindAmenity, g.amenity.ID)
	require.NoError(t, err)
	s.Delete(amenity)
	require.NoError(t, s.Save(ctx))

	got, err := b.Session().Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.(*entities.Place).AmenityIDs)
}

func testMissingReference(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	s := b.Session()
	s.New(entities.NewCity("no-such-state", "Nowhere"))

	err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))

	n, err := b.Session().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testInvalidRejected(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	s := b.Session()
	s.New(entities.NewState("Valid"))
	s.New(&entities.State{Base: entities.NewBase()})

	err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	n, err := b.Session().Count(ctx, entities.KindState)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing from a rejected save is applied")
}

func testOverlongRejected(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()

	s := b.Session()
	s.New(entities.NewState(strings.Repeat("n", entities.MaxStringLength+1)))
	err := s.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	g := newGraph()
	save(t, b.Session(), g.all()...)

	s = b.Session()
	got, err := s.Get(ctx, entities.KindReview, g.review.ID)
	require.NoError(t, err)
	got.(*entities.Review).Text = strings.Repeat("t", entities.MaxTextLength+1)
	err = s.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err), "got %v", err)

	got, err = b.Session().Get(ctx, entities.KindReview, g.review.ID)
	require.NoError(t, err)
	assert.Equal(t, g.review.Text, got.(*entities.Review).Text)

	n, err := b.Session().Count(ctx, entities.KindState)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testLinksChangedElsewhere(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	g := newGraph()
	pool := entities.NewAmenity("Pool")
	sauna := entities.NewAmenity("Sauna")
	save(t, b.Session(), append(g.all(), pool, sauna)...)

	editor := b.Session()
	loaded, err := editor.Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)

	other := b.Session()
	wifi, err := other.Get(ctx, entities.KindAmenity, g.amenity.ID)
	require.NoError(t, err)
	other.Delete(wifi)
	linked, err := other.Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	linked.(*entities.Place).LinkAmenity(pool.ID)
	require.NoError(t, other.Save(ctx))

	loaded.(*entities.Place).Name = "Renamed loft"
	require.NoError(t, editor.Save(ctx))

	got, err := b.Session().Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed loft", got.(*entities.Place).Name)
	assert.Equal(t, []string{pool.ID}, got.(*entities.Place).AmenityIDs)

	editor = b.Session()
	loaded, err = editor.Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)

	remover := b.Session()
	gone, err := remover.Get(ctx, entities.KindAmenity, sauna.ID)
	require.NoError(t, err)
	remover.Delete(gone)
	require.NoError(t, remover.Save(ctx))

	loaded.(*entities.Place).LinkAmenity(sauna.ID)
	err = editor.Save(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err), "got %v", err)

	got, err = b.Session().Get(ctx, entities.KindPlace, g.place.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{pool.ID}, got.(*entities.Place).AmenityIDs)
}

func testConcurrentSaves(t *testing.T, open Opener) {
	ctx := context.Background()
	b := open()
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := b.Session()
			defer s.Close()
			s.New(entities.NewAmenity(fmt.Sprintf("amenity-%d", i)))
			errs <- s.Save(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	n, err := b.Session().Count(ctx, entities.KindAmenity)
	require.NoError(t, err)
	assert.Equal(t, workers, n)

	fresh, err := open().Session().Count(ctx, entities.KindAmenity)
	require.NoError(t, err)
	assert.Equal(t, workers, fresh, "every concurrent save must reach the durable store")
}
