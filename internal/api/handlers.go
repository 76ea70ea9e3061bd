package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jalvarez/go-partyjam/internal/database"
	"github.com/jalvarez/go-partyjam/internal/jam"
	"github.com/jalvarez/go-partyjam/internal/types"
)

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type CreateRoomResponse struct {
	Room      types.Room `json:"room"`
	HostId    uuid.UUID  `json:"host_id"`
	HostToken string     `json:"host_token"`
}

type AddTrackRequest struct {
	Code           string `json:"code"`
	GuestId        string `json:"guest_id"`
	CatalogTrackId string `json:"catalog_track_id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	ImageUrl       string `json:"image_url"`
}

type CastVoteRequest struct {
	Code    string    `json:"code"`
	TrackId uuid.UUID `json:"track_id"`
	GuestId string    `json:"guest_id"`
}

type AdvanceRequest struct {
	Code string `json:"code"`
}

type CloseRoomRequest struct {
	Code string `json:"code"`
}

func (s *PartyJamApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toRoom(room database.Room) types.Room {
	return types.Room{
		Id:        room.Id,
		Code:      room.Code,
		Name:      room.Name,
		Status:    room.Status,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
}

func toQueuedTrack(track database.Track) types.QueuedTrack {
	return types.QueuedTrack{
		Id:             track.Id,
		RoomId:         track.RoomId,
		CatalogTrackId: track.CatalogTrackId,
		Title:          track.Title,
		Artist:         track.Artist,
		ImageUrl:       track.ImageUrl,
		AddedBy:        track.AddedBy,
		VoteCount:      track.VoteCount,
		State:          track.State,
		AddedAt:        track.AddedAt,
	}
}

const createRoomAttempts = 5

func (s *PartyJamApp) createRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	hostId := uuid.New()

	var room database.Room
	for attempt := 0; ; attempt++ {
		code, err := s.generateShortId()
		if err != nil {
			s.log.Print("generateShortId:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		room, err = s.db.CreateRoom(database.CreateRoomParams{
			Code:   code,
			HostId: hostId,
			Name:   req.Name,
		})
		if err == nil {
			break
		}
		if errors.Is(err, database.ErrCodeTaken) && attempt < createRoomAttempts-1 {
			continue
		}

		s.log.Println("create room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createHostToken(hostId, room.Code, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createHostTokenCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusCreated, CreateRoomResponse{
		Room:      toRoom(room),
		HostId:    hostId,
		HostToken: token,
	})
}

func (s *PartyJamApp) getRoom(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// a closed room is gone as far as joining guests are concerned
	if room.Status != types.RoomStatusOpen {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toRoom(room))
}

func (s *PartyJamApp) closeRoom(w http.ResponseWriter, r *http.Request) {
	claims, ok := HostClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CloseRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code != claims.RoomCode {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.js.CloseRoom(r.Context(), req.Code, claims.HostId); err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, jam.ErrRoomNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, jam.ErrForbidden):
			errResp = NewForbiddenError()
		case errors.Is(err, jam.ErrServerBusy), errors.Is(err, jam.ErrShuttingDown):
			errResp = NewServiceUnavailableError()
		default:
			s.log.Println("close room:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *PartyJamApp) addTrack(w http.ResponseWriter, r *http.Request) {
	var req AddTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code == "" || req.GuestId == "" || req.CatalogTrackId == "" || req.Title == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	track, err := s.js.AddTrack(r.Context(), req.Code, database.AddTrackParams{
		CatalogTrackId: req.CatalogTrackId,
		Title:          req.Title,
		Artist:         req.Artist,
		ImageUrl:       req.ImageUrl,
		AddedBy:        req.GuestId,
	})
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, jam.ErrRoomNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, database.ErrDuplicateTrack):
			errResp = NewConflictError()
		case errors.Is(err, jam.ErrServerBusy), errors.Is(err, jam.ErrShuttingDown):
			errResp = NewServiceUnavailableError()
		default:
			s.log.Println("add track:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toQueuedTrack(track))
}

func (s *PartyJamApp) getQueue(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if room.Status != types.RoomStatusOpen {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbTracks, err := s.db.ListQueue(room.Id)
	if err != nil {
		s.log.Println("list queue:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tracks := make([]types.QueuedTrack, 0, len(dbTracks))
	for _, track := range dbTracks {
		tracks = append(tracks, toQueuedTrack(track))
	}

	s.writeJson(w, http.StatusOK, tracks)
}

func (s *PartyJamApp) advanceQueue(w http.ResponseWriter, r *http.Request) {
	claims, ok := HostClaims(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code != claims.RoomCode {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	track, err := s.js.Advance(r.Context(), req.Code, claims.HostId)
	if err != nil {
		if errors.Is(err, jam.ErrQueueEmpty) {
			// nothing to play is not an error; nothing changed either,
			// so no notification goes out
			s.writeJson(w, http.StatusNoContent, nil)
			return
		}

		var errResp *ApiError
		switch {
		case errors.Is(err, jam.ErrRoomNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, jam.ErrForbidden):
			errResp = NewForbiddenError()
		case errors.Is(err, jam.ErrServerBusy), errors.Is(err, jam.ErrShuttingDown):
			errResp = NewServiceUnavailableError()
		default:
			s.log.Println("advance queue:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toQueuedTrack(track))
}

func (s *PartyJamApp) castVote(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Code == "" || req.GuestId == "" || req.TrackId == uuid.Nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	voteCount, accepted, err := s.js.CastVote(r.Context(), req.Code, req.TrackId, req.GuestId)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, jam.ErrRoomNotFound), errors.Is(err, jam.ErrTrackNotFound):
			errResp = NewNotFoundError()
		case errors.Is(err, jam.ErrServerBusy), errors.Is(err, jam.ErrShuttingDown):
			errResp = NewServiceUnavailableError()
		default:
			s.log.Println("cast vote:", err)
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.VoteReceipt{
		Accepted:  accepted,
		VoteCount: voteCount,
	})
}

func (s *PartyJamApp) searchTracks(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	query := r.URL.Query().Get("q")
	if code == "" || query == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, err := s.db.GetRoomByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if room.Status != types.RoomStatusOpen {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.catalog == nil {
		errResp := NewServiceUnavailableError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	tracks, err := s.catalog.SearchTracks(r.Context(), query)
	if err != nil {
		s.log.Println("search tracks:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, tracks)
}

func (s *PartyJamApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *PartyJamApp) serveWs(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := jam.NewClient(conn, s.js, s.log)
	if err := s.js.Attach(r.Context(), client, code); err != nil {
		s.log.Println("attach client:", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
