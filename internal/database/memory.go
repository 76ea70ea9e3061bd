package database

import (
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemJamRepository keeps all state in process memory. It backs the
// "-dsn memory" development mode and the semantic tests; it honors the same
// contract as the postgres repository, including sql.ErrNoRows on misses.
type MemJamRepository struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]Room
	codes  map[string]uuid.UUID
	tracks map[uuid.UUID]Track
	votes  map[uuid.UUID]map[string]struct{}
}

func NewMemJamRepository() *MemJamRepository {
	return &MemJamRepository{
		rooms:  make(map[uuid.UUID]Room),
		codes:  make(map[string]uuid.UUID),
		tracks: make(map[uuid.UUID]Track),
		votes:  make(map[uuid.UUID]map[string]struct{}),
	}
}

func (db *MemJamRepository) Ping() error { return nil }

func (db *MemJamRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.codes[params.Code]; exists {
		return Room{}, ErrCodeTaken
	}

	now := time.Now().UTC()
	room := Room{
		Id:        uuid.New(),
		Code:      params.Code,
		HostId:    params.HostId,
		Name:      params.Name,
		Status:    "OPEN",
		CreatedAt: now,
		UpdatedAt: now,
	}

	db.rooms[room.Id] = room
	db.codes[room.Code] = room.Id

	return room, nil
}

func (db *MemJamRepository) GetRoomByCode(code string) (Room, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.codes[code]
	if !ok {
		return Room{}, sql.ErrNoRows
	}

	return db.rooms[id], nil
}

func (db *MemJamRepository) CloseRoom(roomId uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	room, ok := db.rooms[roomId]
	if !ok {
		return sql.ErrNoRows
	}

	room.Status = "CLOSED"
	room.UpdatedAt = time.Now().UTC()
	db.rooms[roomId] = room

	return nil
}

func (db *MemJamRepository) AddTrack(params AddTrackParams) (Track, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[params.RoomId]; !ok {
		return Track{}, sql.ErrNoRows
	}

	for _, t := range db.tracks {
		if t.RoomId == params.RoomId && t.CatalogTrackId == params.CatalogTrackId && t.State == "PENDING" {
			return Track{}, ErrDuplicateTrack
		}
	}

	track := Track{
		Id:             uuid.New(),
		RoomId:         params.RoomId,
		CatalogTrackId: params.CatalogTrackId,
		Title:          params.Title,
		Artist:         params.Artist,
		ImageUrl:       params.ImageUrl,
		AddedBy:        params.AddedBy,
		VoteCount:      0,
		State:          "PENDING",
		AddedAt:        time.Now().UTC(),
	}

	db.tracks[track.Id] = track
	db.votes[track.Id] = make(map[string]struct{})

	return track, nil
}

func (db *MemJamRepository) GetTrack(roomId, trackId uuid.UUID) (Track, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	track, ok := db.tracks[trackId]
	if !ok || track.RoomId != roomId {
		return Track{}, sql.ErrNoRows
	}

	return track, nil
}

func (db *MemJamRepository) ListQueue(roomId uuid.UUID) ([]Track, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[roomId]; !ok {
		return nil, sql.ErrNoRows
	}

	return db.pendingTracks(roomId), nil
}

func (db *MemJamRepository) CastVote(roomId, trackId uuid.UUID, guestId string) (int, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	track, ok := db.tracks[trackId]
	if !ok || track.RoomId != roomId || track.State != "PENDING" {
		return 0, false, sql.ErrNoRows
	}

	if _, voted := db.votes[trackId][guestId]; voted {
		return track.VoteCount, false, nil
	}

	db.votes[trackId][guestId] = struct{}{}
	track.VoteCount = len(db.votes[trackId])
	db.tracks[trackId] = track

	return track.VoteCount, true, nil
}

func (db *MemJamRepository) AdvanceQueue(roomId uuid.UUID) (Track, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	pending := db.pendingTracks(roomId)
	if len(pending) == 0 {
		return Track{}, sql.ErrNoRows
	}

	top := pending[0]
	top.State = "PLAYED"
	db.tracks[top.Id] = top

	return top, nil
}

func (db *MemJamRepository) pendingTracks(roomId uuid.UUID) []Track {
	var tracks = make([]Track, 0)
	for _, t := range db.tracks {
		if t.RoomId == roomId && t.State == "PENDING" {
			tracks = append(tracks, t)
		}
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		return rankBefore(tracks[i], tracks[j])
	})

	return tracks
}

// rankBefore implements the queue's total order: most votes first, earliest
// added on ties, id as a final deterministic tiebreak.
func rankBefore(a, b Track) bool {
	if a.VoteCount != b.VoteCount {
		return a.VoteCount > b.VoteCount
	}
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.Id.String() < b.Id.String()
}
