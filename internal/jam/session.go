package jam

import (
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jalvarez/go-partyjam/internal/database"
)

const idleSessionTimeout = 30 * time.Second

type opKind int

const (
	opAddTrack opKind = iota
	opCastVote
	opAdvance
	opClose
)

type opRequest struct {
	kind     opKind
	code     string
	addTrack *database.AddTrackParams
	trackId  uuid.UUID
	guestId  string
	callerId uuid.UUID
	reply    chan opResult
}

type opResult struct {
	track     database.Track
	voteCount int
	accepted  bool
	err       error
}

type attachRequest struct {
	client *Client
	code   string
	reply  chan error
}

type exitReq struct {
	closed bool
}

// Session serializes all mutations for one room and fans change signals out
// to the room's subscribers. Only the session goroutine touches clients.
type Session struct {
	room       database.Room
	js         *JamServer
	log        *log.Logger
	opChan     chan *opRequest
	attachChan chan *attachRequest
	detachChan chan *Client
	clients    map[*Client]struct{}
	killTimer  *time.Timer
	exit       chan exitReq
	done       chan struct{}
}

func newSession(room database.Room, js *JamServer) *Session {
	return &Session{
		room:       room,
		js:         js,
		log:        js.log,
		opChan:     make(chan *opRequest, 256),
		attachChan: make(chan *attachRequest, 16),
		detachChan: make(chan *Client, 256),
		clients:    make(map[*Client]struct{}),
		exit:       make(chan exitReq),
		done:       make(chan struct{}),
	}
}

func (s *Session) run() {
	s.log.Printf("starting session for room %q", s.room.Code)
	s.killTimer = time.NewTimer(idleSessionTimeout)

	for {
		select {
		case op := <-s.opChan:
			s.handleOp(op)
		case att := <-s.attachChan:
			s.handleAttach(att)
		case client := <-s.detachChan:
			s.handleDetach(client)
		case <-s.killTimer.C:
			s.requestUnload(false)
		case e := <-s.exit:
			s.handleExit(e)
			return
		}
	}
}

func (s *Session) handleOp(op *opRequest) {
	if len(s.clients) == 0 {
		s.killTimer.Reset(idleSessionTimeout)
	}

	var res opResult
	switch op.kind {
	case opAddTrack:
		params := *op.addTrack
		params.RoomId = s.room.Id
		res.track, res.err = s.js.db.AddTrack(params)
		if res.err == nil {
			s.js.stats.Incr(MetricTracksQueued)
			s.broadcast(queueChanged(s.room.Code))
		}
	case opCastVote:
		res.voteCount, res.accepted, res.err = s.js.db.CastVote(s.room.Id, op.trackId, op.guestId)
		if errors.Is(res.err, sql.ErrNoRows) {
			res.err = ErrTrackNotFound
		}
		if res.err == nil && res.accepted {
			s.js.stats.Incr(MetricVotesCast)
			s.broadcast(queueChanged(s.room.Code))
		}
	case opAdvance:
		if op.callerId != s.room.HostId {
			res.err = ErrForbidden
			break
		}
		res.track, res.err = s.js.db.AdvanceQueue(s.room.Id)
		if errors.Is(res.err, sql.ErrNoRows) {
			res.err = ErrQueueEmpty
		}
		if res.err == nil {
			s.js.stats.Incr(MetricTracksPlayed)
			s.broadcast(queueChanged(s.room.Code))
		}
	case opClose:
		if op.callerId != s.room.HostId {
			res.err = ErrForbidden
			break
		}
		res.err = s.js.db.CloseRoom(s.room.Id)
		if res.err == nil {
			s.requestUnload(true)
		}
	}

	op.reply <- res
}

func (s *Session) handleAttach(att *attachRequest) {
	s.clients[att.client] = struct{}{}
	att.client.setSession(s)
	s.killTimer.Stop()
	s.js.stats.Incr(MetricConnectedClients)
	att.reply <- nil
}

func (s *Session) handleDetach(client *Client) {
	if _, ok := s.clients[client]; !ok {
		return
	}

	delete(s.clients, client)
	s.js.stats.Decr(MetricConnectedClients)

	if len(s.clients) == 0 {
		s.killTimer.Reset(idleSessionTimeout)
	}
}

// requestUnload asks the hub to retire this session. If the hub is backed up
// the request is dropped and the idle timer rearmed, so the session retries
// rather than blocking its own loop.
func (s *Session) requestUnload(closed bool) {
	select {
	case s.js.unloadChan <- unloadRequest{code: s.room.Code, closed: closed}:
	default:
		s.killTimer.Reset(idleSessionTimeout)
	}
}

func (s *Session) handleExit(e exitReq) {
	s.log.Printf("session for room %q exiting", s.room.Code)

	if e.closed {
		s.broadcast(sessionClosed(s.room.Code))
	}
	for client := range s.clients {
		client.stopClient()
		s.js.stats.Decr(MetricConnectedClients)
	}
	s.clients = nil

	// Reject ops that raced in after the hub chose to unload. Callers retry
	// and get a fresh session, or a not-found if the room closed.
	for {
		select {
		case op := <-s.opChan:
			op.reply <- opResult{err: ErrServerBusy}
		case att := <-s.attachChan:
			att.reply <- ErrServerBusy
		default:
			close(s.done)
			return
		}
	}
}

func (s *Session) broadcast(msg *ServerMessage) {
	for client := range s.clients {
		if !client.queueMessage(msg) {
			s.log.Printf("dropping message for slow client in room %q", s.room.Code)
		}
	}
}
