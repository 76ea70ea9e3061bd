package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoomStatusOpen   = "OPEN"
	RoomStatusClosed = "CLOSED"

	TrackStatePending = "PENDING"
	TrackStatePlayed  = "PLAYED"
)

type Room struct {
	Id        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type QueuedTrack struct {
	Id             uuid.UUID `json:"id"`
	RoomId         uuid.UUID `json:"room_id"`
	CatalogTrackId string    `json:"catalog_track_id"`
	Title          string    `json:"title"`
	Artist         string    `json:"artist"`
	ImageUrl       string    `json:"image_url,omitempty"`
	AddedBy        string    `json:"added_by"`
	VoteCount      int       `json:"vote_count"`
	State          string    `json:"state"`
	AddedAt        time.Time `json:"added_at"`
}

// VoteReceipt is the result of a cast-vote request. Accepted is false when
// the guest had already voted for the track; VoteCount is authoritative
// either way.
type VoteReceipt struct {
	Accepted  bool `json:"accepted"`
	VoteCount int  `json:"vote_count"`
}

type CatalogTrack struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	ImageUrl string `json:"image_url,omitempty"`
}
