package domain

import "time"

// StateChange is published for every observable transition.
type StateChange struct {
	From       State     `json:"from"`
	To         State     `json:"to"`
	Module     string    `json:"module,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	Generation uint64    `json:"generation"`
	Reason     string    `json:"reason,omitempty"` // Error text for faulted/stuck transitions
	Timestamp  time.Time `json:"timestamp"`
}

// SessionMessage is a channel message tagged with the session that produced it.
type SessionMessage struct {
	SessionID  string    `json:"session_id"`
	Module     string    `json:"module"`
	Generation uint64    `json:"generation"`
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Topic      string    `json:"topic"`
	Payload    string    `json:"payload"`
	Timestamp  time.Time `json:"timestamp"`
}
