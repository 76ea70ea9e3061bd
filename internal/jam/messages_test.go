package jam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueChanged(t *testing.T) {
	msg := queueChanged("JAM123")

	require.NotNil(t, msg.Notification)
	require.NotNil(t, msg.Notification.QueueChanged)
	assert.Equal(t, "JAM123", msg.Notification.QueueChanged.RoomCode)
	assert.Nil(t, msg.Notification.SessionClosed)
	assert.False(t, msg.Timestamp.IsZero(), "expected timestamp to be set")

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"queue_changed"`)
	assert.NotContains(t, string(data), `"session_closed"`, "expected unset notifications to be omitted")
}

func TestSessionClosed(t *testing.T) {
	msg := sessionClosed("JAM123")

	require.NotNil(t, msg.Notification)
	require.NotNil(t, msg.Notification.SessionClosed)
	assert.Equal(t, "JAM123", msg.Notification.SessionClosed.RoomCode)
	assert.Nil(t, msg.Notification.QueueChanged)
}
