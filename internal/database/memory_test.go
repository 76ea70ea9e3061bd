package database

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, db *MemJamRepository) Room {
	room, err := db.CreateRoom(CreateRoomParams{
		Code:   "JAM123",
		HostId: uuid.New(),
		Name:   "test room",
	})
	require.NoError(t, err, "expected room to be created")
	return room
}

func addTestTrack(t *testing.T, db *MemJamRepository, roomId uuid.UUID, catalogId string) Track {
	track, err := db.AddTrack(AddTrackParams{
		RoomId:         roomId,
		CatalogTrackId: catalogId,
		Title:          "title-" + catalogId,
		Artist:         "artist",
		AddedBy:        "guest-adder",
	})
	require.NoError(t, err, "expected track to be added")
	return track
}

func TestCreateRoom_CodeTaken(t *testing.T) {
	db := NewMemJamRepository()
	newTestRoom(t, db)

	_, err := db.CreateRoom(CreateRoomParams{Code: "JAM123", HostId: uuid.New(), Name: "other"})
	assert.ErrorIs(t, err, ErrCodeTaken, "expected code collision error")
}

func TestGetRoomByCode_NotFound(t *testing.T) {
	db := NewMemJamRepository()

	_, err := db.GetRoomByCode("NOPE")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no rows for unknown code")
}

func TestCloseRoom(t *testing.T) {
	db := NewMemJamRepository()
	room := newTestRoom(t, db)

	err := db.CloseRoom(room.Id)
	assert.NoError(t, err, "expected room to close")

	got, err := db.GetRoomByCode(room.Code)
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", got.Status, "expected room status to be CLOSED")

	err = db.CloseRoom(uuid.New())
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no rows for unknown room")
}

func TestAddTrack_Duplicate(t *testing.T) {
	db := NewMemJamRepository()
	room := newTestRoom(t, db)

	track := addTestTrack(t, db, room.Id, "cat-1")
	assert.Equal(t, 0, track.VoteCount, "expected new track to start with zero votes")
	assert.Equal(t, "PENDING", track.State, "expected new track to be pending")

	_, err := db.AddTrack(AddTrackParams{
		RoomId:         room.Id,
		CatalogTrackId: "cat-1",
		Title:          "same song again",
		AddedBy:        "other-guest",
	})
	assert.ErrorIs(t, err, ErrDuplicateTrack, "expected duplicate pending track to be rejected")

	// once the first copy has played, the same catalog track may be queued again
	_, err = db.AdvanceQueue(room.Id)
	require.NoError(t, err)

	_, err = db.AddTrack(AddTrackParams{
		RoomId:         room.Id,
		CatalogTrackId: "cat-1",
		Title:          "same song again",
		AddedBy:        "other-guest",
	})
	assert.NoError(t, err, "expected played track not to block re-queueing")
}

func TestCastVote_Idempotent(t *testing.T) {
	db := NewMemJamRepository()
	room := newTestRoom(t, db)
	track := addTestTrack(t, db, room.Id, "cat-1")

	count, accepted, err := db.CastVote(room.Id, track.Id, "guest-1")
	require.NoError(t, err)
	assert.True(t, accepted, "expected first vote to be accepted")
	assert.Equal(t, 1, count, "expected vote count of 1")

	count, accepted, err = db.CastVote(room.Id, track.Id, "guest-1")
	require.NoError(t, err)
	assert.False(t, accepted, "expected repeat vote to be rejected")
	assert.Equal(t, 1, count, "expected vote count unchanged after repeat vote")

	count, accepted, err = db.CastVote(room.Id, track.Id, "guest-2")
	require.NoError(t, err)
	assert.True(t, accepted, "expected vote from second guest to be accepted")
	assert.Equal(t, 2, count, "expected vote count of 2")

	_, _, err = db.CastVote(room.Id, uuid.New(), "guest-1")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no rows for unknown track")
}

func TestListQueue_Ranking(t *testing.T) {
	db := NewMemJamRepository()
	room := newTestRoom(t, db)

	trackA := addTestTrack(t, db, room.Id, "cat-a")
	trackB := addTestTrack(t, db, room.Id, "cat-b")
	trackC := addTestTrack(t, db, room.Id, "cat-c")

	vote := func(trackId uuid.UUID, guests ...string) {
		for _, g := range guests {
			_, _, err := db.CastVote(room.Id, trackId, g)
			require.NoError(t, err)
		}
	}

	vote(trackA.Id, "g1", "g2")
	vote(trackB.Id, "g1", "g2")
	vote(trackC.Id, "g1", "g2", "g3")

	queue, err := db.ListQueue(room.Id)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, trackC.Id, queue[0].Id, "expected most voted track first")
	assert.Equal(t, trackA.Id, queue[1].Id, "expected earlier added track to win the tie")
	assert.Equal(t, trackB.Id, queue[2].Id)

	// tying A with C does not let it jump ahead of the earlier-added C
	vote(trackA.Id, "g3")

	queue, err = db.ListQueue(room.Id)
	require.NoError(t, err)
	assert.Equal(t, trackC.Id, queue[0].Id, "expected earlier added track to stay first on a tie")
	assert.Equal(t, trackA.Id, queue[1].Id)
}

func TestAdvanceQueue(t *testing.T) {
	db := NewMemJamRepository()
	room := newTestRoom(t, db)

	_, err := db.AdvanceQueue(room.Id)
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected no rows on empty queue")

	trackA := addTestTrack(t, db, room.Id, "cat-a")
	trackB := addTestTrack(t, db, room.Id, "cat-b")

	_, _, err = db.CastVote(room.Id, trackB.Id, "g1")
	require.NoError(t, err)

	played, err := db.AdvanceQueue(room.Id)
	require.NoError(t, err)
	assert.Equal(t, trackB.Id, played.Id, "expected top voted track to play first")
	assert.Equal(t, "PLAYED", played.State)

	played, err = db.AdvanceQueue(room.Id)
	require.NoError(t, err)
	assert.Equal(t, trackA.Id, played.Id)

	_, err = db.AdvanceQueue(room.Id)
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected queue to be drained")

	// played tracks never return to the queue
	queue, err := db.ListQueue(room.Id)
	require.NoError(t, err)
	assert.Empty(t, queue, "expected no pending tracks after draining")

	_, _, err = db.CastVote(room.Id, trackB.Id, "g2")
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected votes on played tracks to be rejected")
}
