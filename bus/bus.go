// Package bus provides in-process publish/subscribe fan-out over named
// groups. Delivery is at-most-once and best-effort: a member whose inbox is
// full is skipped without blocking the publisher or the other members.
package bus

import (
	"log/slog"
	"sync"
)

// BroadcastGroup is the single global group every connection joins.
const BroadcastGroup = "broadcast"

// HeartbeatGroup names the per-session heartbeat group.
func HeartbeatGroup(sessionID string) string {
	return "heartbeat:" + sessionID
}

// Kind tags an Envelope. Handlers dispatch on it exhaustively.
type Kind int

const (
	KindHeartbeat Kind = iota
	KindBroadcast
	KindShutdown
	KindNewMessages
)

func (k Kind) String() string {
	switch k {
	case KindHeartbeat:
		return "heartbeat"
	case KindBroadcast:
		return "broadcast"
	case KindShutdown:
		return "shutdown"
	case KindNewMessages:
		return "new_messages"
	default:
		return "unknown"
	}
}

// Envelope is a tagged payload delivered to group members. Timestamp is epoch
// milliseconds. Which other fields are meaningful depends on Kind.
type Envelope struct {
	Kind      Kind
	Timestamp int64
	Message   string
	Title     string
	Level     string
	Source    string
	Reason    string
}

// Subscription is one member's inbox. A subscription may belong to any number
// of groups; envelopes from all of them arrive on the same channel, preserving
// per-group publish order.
type Subscription struct {
	inbox chan Envelope
}

func (s *Subscription) Inbox() <-chan Envelope {
	return s.inbox
}

type GroupBus struct {
	mu     sync.Mutex
	groups map[string]map[*Subscription]struct{}
	logger *slog.Logger
}

func New(logger *slog.Logger) *GroupBus {
	return &GroupBus{
		groups: make(map[string]map[*Subscription]struct{}),
		logger: logger.With(slog.String("component", "group_bus")),
	}
}

// Subscribe creates a new member inbox with the given buffer size.
func (b *GroupBus) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	return &Subscription{inbox: make(chan Envelope, buffer)}
}

// Join adds a member to a group, creating the group on first join.
func (b *GroupBus) Join(group string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		members = make(map[*Subscription]struct{})
		b.groups[group] = members
	}
	members[sub] = struct{}{}
}

// Leave removes a member from a group. Leaving a group the member is not in
// is a no-op. An empty group is removed so heartbeat groups do not accumulate.
func (b *GroupBus) Leave(group string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(b.groups, group)
	}
}

// LeaveAll removes a member from every group it joined.
func (b *GroupBus) LeaveAll(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for group, members := range b.groups {
		delete(members, sub)
		if len(members) == 0 {
			delete(b.groups, group)
		}
	}
}

// Publish delivers an envelope to every current member of a group.
// Publishing to a group with no members is a no-op. The mutex is held across
// all enqueues, so two publishes to the same group reach every shared member
// in the same relative order. A member that cannot accept the envelope is
// skipped.
func (b *GroupBus) Publish(group string, env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.groups[group]
	if !ok {
		return
	}
	for sub := range members {
		select {
		case sub.inbox <- env:
		default:
			b.logger.Warn("dropping envelope for slow member",
				slog.String("group", group),
				slog.String("kind", env.Kind.String()),
			)
		}
	}
}

// MemberCount reports the current size of a group.
func (b *GroupBus) MemberCount(group string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.groups[group])
}
