package database

import "database/sql"

// createSchema bootstraps all tables. Safe to run repeatedly.
func createSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	host_id UUID NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS guests (
	id TEXT NOT NULL,
	room_id UUID NOT NULL REFERENCES rooms (id),
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (room_id, id)
);

CREATE TABLE IF NOT EXISTS tracks (
	id UUID PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES rooms (id),
	catalog_track_id TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	added_by TEXT NOT NULL,
	vote_count INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL DEFAULT 'PENDING' CHECK (state IN ('PENDING', 'PLAYED')),
	added_at TIMESTAMPTZ NOT NULL
);

-- a catalog track may appear at most once per room while pending
CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_room_catalog_pending
	ON tracks (room_id, catalog_track_id) WHERE state = 'PENDING';

CREATE INDEX IF NOT EXISTS idx_tracks_room_state ON tracks (room_id, state);

CREATE TABLE IF NOT EXISTS votes (
	track_id UUID NOT NULL REFERENCES tracks (id),
	guest_id TEXT NOT NULL,
	room_id UUID NOT NULL REFERENCES rooms (id),
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (track_id, guest_id)
);
`
