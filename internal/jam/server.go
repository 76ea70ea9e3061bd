package jam

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jalvarez/go-partyjam/internal/database"
	"github.com/jalvarez/go-partyjam/internal/stats"
	"github.com/jalvarez/go-partyjam/internal/types"
)

const (
	MetricActiveSessions   = "ActiveSessions"
	MetricConnectedClients = "ConnectedClients"
	MetricTracksQueued     = "TracksQueued"
	MetricVotesCast        = "VotesCast"
	MetricTracksPlayed     = "TracksPlayed"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrTrackNotFound = errors.New("track not found")
	ErrForbidden     = errors.New("forbidden")
	ErrQueueEmpty    = errors.New("queue empty")
	ErrServerBusy    = errors.New("server busy")
	ErrShuttingDown  = errors.New("server shutting down")
)

// JamServer routes every room mutation and subscription through a per-room
// session goroutine, so same-room operations never interleave while
// different rooms proceed independently. Sessions load on demand and unload
// after an idle timeout; the repository holds the durable state.
type JamServer struct {
	log        *log.Logger
	db         database.JamRepository
	stats      stats.StatsProvider
	sessions   map[string]*Session
	opChan     chan *opRequest
	attachChan chan *attachRequest
	unloadChan chan unloadRequest
	stop       chan struct{}
	done       chan struct{}
}

type unloadRequest struct {
	code   string
	closed bool
}

func NewJamServer(logger *log.Logger, db database.JamRepository, statsProvider stats.StatsProvider) (*JamServer, error) {
	for _, m := range []string{
		MetricActiveSessions,
		MetricConnectedClients,
		MetricTracksQueued,
		MetricVotesCast,
		MetricTracksPlayed,
	} {
		statsProvider.RegisterMetric(m)
	}

	return &JamServer{
		log:        logger,
		db:         db,
		stats:      statsProvider,
		sessions:   make(map[string]*Session),
		opChan:     make(chan *opRequest),
		attachChan: make(chan *attachRequest),
		unloadChan: make(chan unloadRequest, 16),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

func (js *JamServer) Run() {
	for {
		select {
		case op := <-js.opChan:
			sess, err := js.sessionFor(op.code)
			if err != nil {
				op.reply <- opResult{err: err}
				continue
			}
			select {
			case sess.opChan <- op:
			default:
				js.log.Printf("op channel full on room %q", op.code)
				op.reply <- opResult{err: ErrServerBusy}
			}
		case att := <-js.attachChan:
			sess, err := js.sessionFor(att.code)
			if err != nil {
				att.reply <- err
				continue
			}
			select {
			case sess.attachChan <- att:
			default:
				js.log.Printf("attach channel full on room %q", att.code)
				att.reply <- ErrServerBusy
			}
		case req := <-js.unloadChan:
			js.unloadSession(req)
		case <-js.stop:
			js.log.Println("shutting down sessions")
			for _, sess := range js.sessions {
				sess.exit <- exitReq{}
				<-sess.done
			}
			close(js.done)
			return
		}
	}
}

// sessionFor returns the loaded session for a room code, loading it from the
// repository on first use. Closed rooms resolve like missing ones.
func (js *JamServer) sessionFor(code string) (*Session, error) {
	if sess, ok := js.sessions[code]; ok {
		return sess, nil
	}

	room, err := js.db.GetRoomByCode(code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Status != types.RoomStatusOpen {
		return nil, ErrRoomNotFound
	}

	sess := newSession(room, js)
	js.sessions[code] = sess
	js.stats.Incr(MetricActiveSessions)

	go sess.run()

	return sess, nil
}

func (js *JamServer) unloadSession(req unloadRequest) {
	sess, ok := js.sessions[req.code]
	if !ok {
		return
	}

	js.log.Printf("unloading session for room %q", req.code)
	delete(js.sessions, req.code)
	js.stats.Decr(MetricActiveSessions)

	sess.exit <- exitReq{closed: req.closed}
	<-sess.done
}

func (js *JamServer) Shutdown(ctx context.Context) error {
	close(js.stop)

	select {
	case <-js.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddTrack queues a catalog track in the room. params.RoomId is ignored; the
// session fills in its own room.
func (js *JamServer) AddTrack(ctx context.Context, code string, params database.AddTrackParams) (database.Track, error) {
	res, err := js.do(ctx, &opRequest{kind: opAddTrack, code: code, addTrack: &params})
	return res.track, err
}

// CastVote records a guest's vote for a pending track. Idempotent: a repeat
// vote returns accepted=false with the unchanged count.
func (js *JamServer) CastVote(ctx context.Context, code string, trackId uuid.UUID, guestId string) (int, bool, error) {
	res, err := js.do(ctx, &opRequest{kind: opCastVote, code: code, trackId: trackId, guestId: guestId})
	return res.voteCount, res.accepted, err
}

// Advance pops the top-ranked pending track and marks it played. Host only.
// Returns ErrQueueEmpty when there is nothing to play.
func (js *JamServer) Advance(ctx context.Context, code string, callerId uuid.UUID) (database.Track, error) {
	res, err := js.do(ctx, &opRequest{kind: opAdvance, code: code, callerId: callerId})
	return res.track, err
}

// CloseRoom marks the room closed and tears down its session. Host only.
func (js *JamServer) CloseRoom(ctx context.Context, code string, callerId uuid.UUID) error {
	_, err := js.do(ctx, &opRequest{kind: opClose, code: code, callerId: callerId})
	return err
}

// Attach subscribes a websocket client to the room's broadcast group.
func (js *JamServer) Attach(ctx context.Context, client *Client, code string) error {
	att := &attachRequest{client: client, code: code, reply: make(chan error, 1)}

	select {
	case js.attachChan <- att:
	case <-js.stop:
		return ErrShuttingDown
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-att.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (js *JamServer) do(ctx context.Context, op *opRequest) (opResult, error) {
	op.reply = make(chan opResult, 1)

	select {
	case js.opChan <- op:
	case <-js.stop:
		return opResult{}, ErrShuttingDown
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}

	select {
	case res := <-op.reply:
		return res, res.err
	case <-ctx.Done():
		return opResult{}, ctx.Err()
	}
}
