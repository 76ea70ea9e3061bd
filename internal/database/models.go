package database

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	Id        uuid.UUID
	Code      string
	HostId    uuid.UUID
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Track struct {
	Id             uuid.UUID
	RoomId         uuid.UUID
	CatalogTrackId string
	Title          string
	Artist         string
	ImageUrl       string
	AddedBy        string
	VoteCount      int
	State          string
	AddedAt        time.Time
}

type Vote struct {
	RoomId    uuid.UUID
	TrackId   uuid.UUID
	GuestId   string
	CreatedAt time.Time
}

type CreateRoomParams struct {
	Code   string
	HostId uuid.UUID
	Name   string
}

type AddTrackParams struct {
	RoomId         uuid.UUID
	CatalogTrackId string
	Title          string
	Artist         string
	ImageUrl       string
	AddedBy        string
}
