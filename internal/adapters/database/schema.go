package database

import (
	"github.com/zatekoja/hbnb/internal/domain/entities"
)

const linkTable = "place_amenity"

// schema holds the DDL in dependency order; it is portable across the
// postgres and sqlite3 drivers.
var schema = []struct {
	table string
	ddl   string
}{
	{"states", `CREATE TABLE IF NOT EXISTS states (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		name VARCHAR(128) NOT NULL
	)`},
	{"cities", `CREATE TABLE IF NOT EXISTS cities (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		state_id VARCHAR(60) NOT NULL REFERENCES states(id) ON DELETE CASCADE,
		name VARCHAR(128) NOT NULL
	)`},
	{"amenities", `CREATE TABLE IF NOT EXISTS amenities (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		name VARCHAR(128) NOT NULL
	)`},
	{"users", `CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		email VARCHAR(128) NOT NULL,
		password VARCHAR(128) NOT NULL,
		first_name VARCHAR(128) NOT NULL DEFAULT '',
		last_name VARCHAR(128) NOT NULL DEFAULT ''
	)`},
	{"places", `CREATE TABLE IF NOT EXISTS places (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		city_id VARCHAR(60) NOT NULL REFERENCES cities(id) ON DELETE CASCADE,
		user_id VARCHAR(60) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(128) NOT NULL,
		description VARCHAR(1024) NOT NULL DEFAULT '',
		number_rooms INTEGER NOT NULL DEFAULT 0,
		number_bathrooms INTEGER NOT NULL DEFAULT 0,
		max_guest INTEGER NOT NULL DEFAULT 0,
		price_by_night INTEGER NOT NULL DEFAULT 0,
		latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude DOUBLE PRECISION NOT NULL DEFAULT 0
	)`},
	{"reviews", `CREATE TABLE IF NOT EXISTS reviews (
		id VARCHAR(60) PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		place_id VARCHAR(60) NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		user_id VARCHAR(60) NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text VARCHAR(1024) NOT NULL
	)`},
	{linkTable, `CREATE TABLE IF NOT EXISTS place_amenity (
		place_id VARCHAR(60) NOT NULL REFERENCES places(id) ON DELETE CASCADE,
		amenity_id VARCHAR(60) NOT NULL REFERENCES amenities(id) ON DELETE CASCADE,
		PRIMARY KEY (place_id, amenity_id)
	)`},
}

func tableOf(kind entities.Kind) string {
	return kind.Plural()
}
