package jam

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jalvarez/go-partyjam/internal/database"
	"github.com/jalvarez/go-partyjam/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	js := newTestJamServer(t, database.NewMemJamRepository())
	room := database.Room{
		Id:     uuid.New(),
		Code:   "JAM123",
		HostId: uuid.New(),
		Status: "OPEN",
	}
	return newSession(room, js)
}

func TestSessionBroadcast(t *testing.T) {
	sess := newTestSession(t)

	client := NewClient(nil, sess.js, testutil.TestLogger(t))
	sess.clients[client] = struct{}{}

	sess.broadcast(queueChanged(sess.room.Code))

	select {
	case msg := <-client.send:
		require.NotNil(t, msg.Notification, "expected a notification")
		require.NotNil(t, msg.Notification.QueueChanged, "expected a queue changed signal")
		assert.Equal(t, sess.room.Code, msg.Notification.QueueChanged.RoomCode)
	default:
		t.Fatal("expected message on client send channel")
	}
}

func TestSessionBroadcast_SlowClient(t *testing.T) {
	sess := newTestSession(t)

	client := NewClient(nil, sess.js, testutil.TestLogger(t))
	sess.clients[client] = struct{}{}

	for i := 0; i < cap(client.send); i++ {
		require.True(t, client.queueMessage(queueChanged(sess.room.Code)))
	}

	// a full client drops the signal rather than stalling the session
	assert.False(t, client.queueMessage(queueChanged(sess.room.Code)))
	sess.broadcast(queueChanged(sess.room.Code))
}

func TestSessionHandleAttachDetach(t *testing.T) {
	sess := newTestSession(t)
	sess.killTimer = time.NewTimer(idleSessionTimeout)

	client := NewClient(nil, sess.js, testutil.TestLogger(t))
	att := &attachRequest{client: client, code: sess.room.Code, reply: make(chan error, 1)}

	sess.handleAttach(att)
	assert.NoError(t, <-att.reply, "expected attach to succeed")
	assert.Contains(t, sess.clients, client, "expected client to be registered")
	assert.Equal(t, sess, client.getSession(), "expected session to be set on client")

	sess.handleDetach(client)
	assert.NotContains(t, sess.clients, client, "expected client to be removed")

	// detaching an unknown client is a no-op
	sess.handleDetach(client)
}

func TestSessionHandleExit_DrainsPendingOps(t *testing.T) {
	sess := newTestSession(t)

	op := &opRequest{kind: opAddTrack, code: sess.room.Code, reply: make(chan opResult, 1)}
	sess.opChan <- op

	sess.handleExit(exitReq{})

	res := <-op.reply
	assert.ErrorIs(t, res.err, ErrServerBusy, "expected racing op to be rejected")

	select {
	case <-sess.done:
	default:
		t.Fatal("expected done channel to be closed")
	}
}

func TestSessionHandleExit_Closed(t *testing.T) {
	sess := newTestSession(t)

	client := NewClient(nil, sess.js, testutil.TestLogger(t))
	sess.clients[client] = struct{}{}

	sess.handleExit(exitReq{closed: true})

	select {
	case msg := <-client.send:
		require.NotNil(t, msg.Notification.SessionClosed, "expected session closed signal")
		assert.Equal(t, sess.room.Code, msg.Notification.SessionClosed.RoomCode)
	default:
		t.Fatal("expected close notification on client send channel")
	}

	select {
	case <-client.stop:
	default:
		t.Fatal("expected client to be stopped")
	}
}
