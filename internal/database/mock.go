package database

import (
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockJamRepository struct {
	mock.Mock
}

func (m *MockJamRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockJamRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockJamRepository) GetRoomByCode(code string) (Room, error) {
	args := m.Called(code)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockJamRepository) CloseRoom(roomId uuid.UUID) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockJamRepository) AddTrack(params AddTrackParams) (Track, error) {
	args := m.Called(params)
	return args.Get(0).(Track), args.Error(1)
}
func (m *MockJamRepository) GetTrack(roomId, trackId uuid.UUID) (Track, error) {
	args := m.Called(roomId, trackId)
	return args.Get(0).(Track), args.Error(1)
}
func (m *MockJamRepository) ListQueue(roomId uuid.UUID) ([]Track, error) {
	args := m.Called(roomId)
	return args.Get(0).([]Track), args.Error(1)
}
func (m *MockJamRepository) CastVote(roomId, trackId uuid.UUID, guestId string) (int, bool, error) {
	args := m.Called(roomId, trackId, guestId)
	return args.Int(0), args.Bool(1), args.Error(2)
}
func (m *MockJamRepository) AdvanceQueue(roomId uuid.UUID) (Track, error) {
	args := m.Called(roomId)
	return args.Get(0).(Track), args.Error(1)
}
