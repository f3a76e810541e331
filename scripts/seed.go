package main

import (
	"context"
	"os"

	"github.com/zatekoja/hbnb/internal/adapters/backends"
	"github.com/zatekoja/hbnb/internal/application/services"
	"github.com/zatekoja/hbnb/internal/domain/entities"
	"github.com/zatekoja/hbnb/internal/infrastructure/observability"
	"github.com/zatekoja/hbnb/pkg/config"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

type seedPlace struct {
	city  string
	name  string
	rooms int
	price int
	lat   float64
	lng   float64
}

var seedStates = map[string][]string{
	"California": {"San Francisco", "Los Angeles", "San Diego"},
	"Nevada":     {"Las Vegas", "Reno"},
	"Oregon":     {"Portland"},
}

var seedAmenities = []string{"Wifi", "Pool", "Kitchen", "Parking", "Air conditioning"}

var seedPlaces = []seedPlace{
	{"San Francisco", "Mission loft", 2, 180, 37.7599, -122.4148},
	{"Los Angeles", "Venice bungalow", 3, 240, 33.9850, -118.4695},
	{"Las Vegas", "Strip studio", 1, 95, 36.1147, -115.1728},
	{"Portland", "Pearl district flat", 2, 130, 45.5272, -122.6847},
}

func str(s string) *string { return &s }

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.GetLogger().Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("hbnb-seed", cfg.Env)
	logger := observability.GetLogger()

	ctx := context.Background()
	backend, err := backends.Open(ctx, cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer backend.Close()

	svc := services.NewEntityService(backend)

	if os.Getenv("RESET_DB") == "true" {
		logger.Info().Msg("RESET_DB=true detected, removing existing data before seeding")
		if err := reset(ctx, svc); err != nil {
			logger.Fatal().Err(err).Msg("failed to reset storage")
		}
	}

	if err := seed(ctx, svc); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to count entities")
	}
	event := logger.Info()
	for plural, n := range stats {
		event = event.Int(plural, n)
	}
	event.Msg("seeding complete")
}

// reset deletes every root entity; storage cascades to the rest
func reset(ctx context.Context, svc *services.EntityService) error {
	for _, kind := range []entities.Kind{entities.KindState, entities.KindUser, entities.KindAmenity} {
		list, err := svc.List(ctx, kind)
		if err != nil {
			return err
		}
		for _, e := range list {
			if err := svc.Delete(ctx, kind, e.GetBase().ID); err != nil && !apperrors.IsNotFound(err) {
				return err
			}
		}
	}
	return nil
}

func seed(ctx context.Context, svc *services.EntityService) error {
	logger := observability.GetLogger()

	host, err := svc.Create(ctx, entities.KindUser, "", &entities.UserInput{
		Email:     str("host@hbnb.io"),
		Password:  str("hbnb-host"),
		FirstName: str("Holberton"),
		LastName:  str("Host"),
	})
	if apperrors.IsConflict(err) {
		logger.Info().Msg("data already seeded, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	guest, err := svc.Create(ctx, entities.KindUser, "", &entities.UserInput{
		Email:    str("guest@hbnb.io"),
		Password: str("hbnb-guest"),
	})
	if err != nil {
		return err
	}

	cities := map[string]string{}
	for state, names := range seedStates {
		s, err := svc.Create(ctx, entities.KindState, "", &entities.StateInput{Name: str(state)})
		if err != nil {
			return err
		}
		for _, name := range names {
			c, err := svc.Create(ctx, entities.KindCity, s.GetBase().ID, &entities.CityInput{Name: str(name)})
			if err != nil {
				return err
			}
			cities[name] = c.GetBase().ID
		}
	}

	amenityIDs := make([]string, 0, len(seedAmenities))
	for _, name := range seedAmenities {
		a, err := svc.Create(ctx, entities.KindAmenity, "", &entities.AmenityInput{Name: str(name)})
		if err != nil {
			return err
		}
		amenityIDs = append(amenityIDs, a.GetBase().ID)
	}

	for i, sp := range seedPlaces {
		rooms, price, lat, lng := sp.rooms, sp.price, sp.lat, sp.lng
		p, err := svc.Create(ctx, entities.KindPlace, cities[sp.city], &entities.PlaceInput{
			UserID:       str(host.GetBase().ID),
			Name:         str(sp.name),
			NumberRooms:  &rooms,
			MaxGuest:     &rooms,
			PriceByNight: &price,
			Latitude:     &lat,
			Longitude:    &lng,
		})
		if err != nil {
			return err
		}
		placeID := p.GetBase().ID

		for _, amenityID := range amenityIDs[:2+i%3] {
			if _, _, err := svc.LinkAmenity(ctx, placeID, amenityID); err != nil {
				return err
			}
		}

		if _, err := svc.Create(ctx, entities.KindReview, placeID, &entities.ReviewInput{
			UserID: str(guest.GetBase().ID),
			Text:   str("Lovely stay at " + sp.name),
		}); err != nil {
			return err
		}
	}

	return nil
}
