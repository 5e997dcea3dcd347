package models

import "time"

// SessionStatus tracks the racing session lifecycle.
type SessionStatus string

const (
	SessionWaiting  SessionStatus = "WAITING"
	SessionActive   SessionStatus = "ACTIVE"
	SessionFinished SessionStatus = "FINISHED"
)

// Valid returns true when the status is a supported value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionWaiting, SessionActive, SessionFinished:
		return true
	default:
		return false
	}
}

// RacingSession is one multiplayer game lobby.
type RacingSession struct {
	ID        string        `db:"id" json:"id"`
	Status    SessionStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// RacingPlayer is one participant in a session. Heartbeats refresh score,
// speed and the last-seen timestamp.
type RacingPlayer struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	Name          string    `db:"name" json:"name"`
	CarColor      string    `db:"car_color" json:"car_color"`
	Score         int       `db:"score" json:"score"`
	Speed         float64   `db:"speed" json:"speed"`
	Status        string    `db:"status" json:"status"`
	LastHeartbeat time.Time `db:"last_heartbeat" json:"last_heartbeat"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SessionState is the polled view of a lobby: the session plus its players
// ordered by score.
type SessionState struct {
	Session RacingSession  `json:"session"`
	Players []RacingPlayer `json:"players"`
}

// JoinSessionRequest adds a player to a waiting session.
type JoinSessionRequest struct {
	Name     string  `json:"name" validate:"required"`
	CarColor string  `json:"car_color"`
	UserID   *string `json:"user_id,omitempty"`
}

// HeartbeatRequest refreshes a player's state, or transitions the session
// status when SessionStatus is set (host only).
type HeartbeatRequest struct {
	PlayerID      string         `json:"player_id"`
	Score         *int           `json:"score,omitempty"`
	Speed         *float64       `json:"speed,omitempty"`
	Status        *string        `json:"status,omitempty"`
	SessionStatus *SessionStatus `json:"session_status,omitempty"`
}

// LeaderboardEntry is one row of the global score board.
type LeaderboardEntry struct {
	PlayerName string `db:"player_name" json:"player_name"`
	CarColor   string `db:"car_color" json:"car_color"`
	Score      int    `db:"score" json:"score"`
	SessionID  string `db:"session_id" json:"session_id"`
}
