package session

import (
	"context"
	"time"
)

// State is the per-session counter record. A session outlives any single
// connection: a later connection presenting the same identifier resumes the
// counter, provided the TTL has not elapsed.
type State struct {
	Count          int     `json:"count"`
	LastActivity   float64 `json:"last_activity"`
	DisconnectedAt float64 `json:"disconnected_at,omitempty"`
	ShutdownReason string  `json:"shutdown_reason,omitempty"`
}

// Message is one history record in a session's append-only message list.
type Message struct {
	Content        string `json:"content"`
	Timestamp      int64  `json:"timestamp"`
	IsSent         bool   `json:"isSent"`
	SessionID      string `json:"sessionId,omitempty"`
	IsBroadcast    bool   `json:"isBroadcast,omitempty"`
	BroadcastLevel string `json:"broadcastLevel,omitempty"`
	BroadcastID    string `json:"broadcastId,omitempty"`
}

// Info augments a session's state with its remaining lifetime, for the
// introspection API.
type Info struct {
	State        State         `json:"data"`
	RemainingTTL time.Duration `json:"-"`
}

// Store defines the interface for session persistence with TTL semantics.
// A missing or expired session is reported as (nil, nil), not as an error.
// Put and Extend set or refresh the TTL atomically with the write.
type Store interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Put(ctx context.Context, sessionID string, state *State, ttl time.Duration) error
	Extend(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	Info(ctx context.Context, sessionID string) (*Info, error)

	AppendMessage(ctx context.Context, sessionID string, msg Message, ttl time.Duration) error
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
}
