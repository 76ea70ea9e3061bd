package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	// pending tracks ranked by votes, earliest-added first on ties; id is a
	// final deterministic tiebreak for equal timestamps
	queueOrder = "ORDER BY vote_count DESC, added_at ASC, id ASC"

	uniqueViolation = pq.ErrorCode("23505")
)

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func (db *PgJamRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	res := db.conn.QueryRow(
		"INSERT INTO rooms (id, code, host_id, name, status, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, 'OPEN', $5, $5) "+
			"RETURNING id, code, host_id, name, status, created_at, updated_at",
		uuid.New(),
		params.Code,
		params.HostId,
		params.Name,
		time.Now().UTC(),
	)

	var room Room
	err := res.Scan(
		&room.Id,
		&room.Code,
		&room.HostId,
		&room.Name,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return Room{}, ErrCodeTaken
	}

	return room, err
}

func (db *PgJamRepository) GetRoomByCode(code string) (Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, code, host_id, name, status, created_at, updated_at FROM rooms "+
			"WHERE code = $1 LIMIT 1",
		code,
	)

	var room Room
	err := row.Scan(
		&room.Id,
		&room.Code,
		&room.HostId,
		&room.Name,
		&room.Status,
		&room.CreatedAt,
		&room.UpdatedAt,
	)

	return room, err
}

func (db *PgJamRepository) CloseRoom(roomId uuid.UUID) error {
	res, err := db.conn.Exec(
		"UPDATE rooms SET status = 'CLOSED', updated_at = $2 WHERE id = $1",
		roomId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgJamRepository) AddTrack(params AddTrackParams) (Track, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Track{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = ensureGuest(tx, params.RoomId, params.AddedBy); err != nil {
		return Track{}, err
	}

	res := tx.QueryRow(
		"INSERT INTO tracks (id, room_id, catalog_track_id, title, artist, image_url, added_by, vote_count, state, added_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 'PENDING', $8) "+
			"RETURNING id, room_id, catalog_track_id, title, artist, image_url, added_by, vote_count, state, added_at",
		uuid.New(),
		params.RoomId,
		params.CatalogTrackId,
		params.Title,
		params.Artist,
		params.ImageUrl,
		params.AddedBy,
		time.Now().UTC(),
	)

	var track Track
	err = scanTrack(res, &track)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateTrack
		}
		return Track{}, err
	}

	if err = tx.Commit(); err != nil {
		return Track{}, err
	}

	return track, nil
}

func (db *PgJamRepository) GetTrack(roomId, trackId uuid.UUID) (Track, error) {
	row := db.conn.QueryRow(
		"SELECT id, room_id, catalog_track_id, title, artist, image_url, added_by, vote_count, state, added_at "+
			"FROM tracks WHERE room_id = $1 AND id = $2 LIMIT 1",
		roomId,
		trackId,
	)

	var track Track
	err := scanTrack(row, &track)

	return track, err
}

func (db *PgJamRepository) ListQueue(roomId uuid.UUID) ([]Track, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, catalog_track_id, title, artist, image_url, added_by, vote_count, state, added_at "+
			"FROM tracks WHERE room_id = $1 AND state = 'PENDING' "+queueOrder,
		roomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks = make([]Track, 0)
	for rows.Next() {
		var track Track
		if err = scanTrack(rows, &track); err != nil {
			return nil, err
		}

		tracks = append(tracks, track)
	}

	return tracks, rows.Err()
}

func (db *PgJamRepository) CastVote(roomId, trackId uuid.UUID, guestId string) (int, bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	// lock the track row so the count and the ledger move together
	var voteCount int
	err = tx.QueryRow(
		"SELECT vote_count FROM tracks "+
			"WHERE room_id = $1 AND id = $2 AND state = 'PENDING' FOR UPDATE",
		roomId,
		trackId,
	).Scan(&voteCount)
	if err != nil {
		return 0, false, err
	}

	if err = ensureGuest(tx, roomId, guestId); err != nil {
		return 0, false, err
	}

	_, err = tx.Exec(
		"INSERT INTO votes (track_id, guest_id, room_id, created_at) VALUES ($1, $2, $3, $4)",
		trackId,
		guestId,
		roomId,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			// already voted: surface the current count unchanged
			err = tx.Rollback()
			return voteCount, false, err
		}
		return 0, false, err
	}

	err = tx.QueryRow(
		"UPDATE tracks SET vote_count = vote_count + 1 WHERE id = $1 RETURNING vote_count",
		trackId,
	).Scan(&voteCount)
	if err != nil {
		return 0, false, err
	}

	if err = tx.Commit(); err != nil {
		return 0, false, err
	}

	return voteCount, true, nil
}

func (db *PgJamRepository) AdvanceQueue(roomId uuid.UUID) (Track, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Track{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	row := tx.QueryRow(
		"SELECT id, room_id, catalog_track_id, title, artist, image_url, added_by, vote_count, state, added_at "+
			"FROM tracks WHERE room_id = $1 AND state = 'PENDING' "+queueOrder+" LIMIT 1 FOR UPDATE",
		roomId,
	)

	var track Track
	if err = scanTrack(row, &track); err != nil {
		return Track{}, err
	}

	if _, err = tx.Exec("UPDATE tracks SET state = 'PLAYED' WHERE id = $1", track.Id); err != nil {
		return Track{}, err
	}

	if err = tx.Commit(); err != nil {
		return Track{}, err
	}

	track.State = "PLAYED"
	return track, nil
}

// ensureGuest registers a self-asserted guest id with the room on first use.
func ensureGuest(tx *sql.Tx, roomId uuid.UUID, guestId string) error {
	_, err := tx.Exec(
		"INSERT INTO guests (id, room_id, created_at) VALUES ($1, $2, $3) "+
			"ON CONFLICT (room_id, id) DO NOTHING",
		guestId,
		roomId,
		time.Now().UTC(),
	)

	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner, track *Track) error {
	return row.Scan(
		&track.Id,
		&track.RoomId,
		&track.CatalogTrackId,
		&track.Title,
		&track.Artist,
		&track.ImageUrl,
		&track.AddedBy,
		&track.VoteCount,
		&track.State,
		&track.AddedAt,
	)
}
