package jam

import "time"

// ServerMessage is the only payload pushed to subscribers. Notifications are
// content-free signals: they tell the client what happened, never what the
// new state is, so the client always re-fetches the queue snapshot. Repeated
// or reordered delivery is therefore harmless.
type ServerMessage struct {
	Timestamp    time.Time     `json:"timestamp"`
	Notification *Notification `json:"notification,omitempty"`
}

type Notification struct {
	QueueChanged  *QueueChanged  `json:"queue_changed,omitempty"`
	SessionClosed *SessionClosed `json:"session_closed,omitempty"`
}

// QueueChanged means the room's ranking changed; re-fetch the queue.
type QueueChanged struct {
	RoomCode string `json:"room_code"`
}

// SessionClosed means the host closed the room.
type SessionClosed struct {
	RoomCode string `json:"room_code"`
}

func queueChanged(code string) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		Notification: &Notification{
			QueueChanged: &QueueChanged{RoomCode: code},
		},
	}
}

func sessionClosed(code string) *ServerMessage {
	return &ServerMessage{
		Timestamp: Now(),
		Notification: &Notification{
			SessionClosed: &SessionClosed{RoomCode: code},
		},
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
