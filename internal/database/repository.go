package database

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateTrack is returned by AddTrack when the room already has a
	// pending entry for the same catalog track.
	ErrDuplicateTrack = errors.New("track already queued")
	// ErrCodeTaken is returned by CreateRoom on a room code collision; the
	// caller retries with a fresh code.
	ErrCodeTaken = errors.New("room code taken")
)

// JamRepository is the persistence boundary for rooms, queued tracks and the
// vote ledger. Lookups that find nothing return sql.ErrNoRows regardless of
// the backing store.
type JamRepository interface {
	Ping() error
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByCode(code string) (Room, error)
	CloseRoom(roomId uuid.UUID) error
	AddTrack(params AddTrackParams) (Track, error)
	GetTrack(roomId, trackId uuid.UUID) (Track, error)
	// ListQueue returns the room's pending tracks ordered by
	// (vote_count desc, added_at asc, id asc).
	ListQueue(roomId uuid.UUID) ([]Track, error)
	// CastVote records a (track, guest) vote fact and bumps the track's
	// aggregate count in the same transaction. A repeat vote is a no-op:
	// accepted is false and the returned count is unchanged.
	CastVote(roomId, trackId uuid.UUID, guestId string) (voteCount int, accepted bool, err error)
	// AdvanceQueue transitions the room's top-ranked pending track to
	// PLAYED and returns it, or sql.ErrNoRows when the queue is empty.
	AdvanceQueue(roomId uuid.UUID) (Track, error)
}
