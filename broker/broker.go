// Package broker defines the contract with the external pub/sub layer that
// carries broadcast notices across relay instances. The relay only publishes
// and subscribes; fan-out between processes is the broker's concern.
package broker

import "context"

// Message is a broadcast notice on the wire between relay instances.
type Message struct {
	ServerID  string `json:"server_id"`
	Body      string `json:"message"`
	Title     string `json:"title"`
	Level     string `json:"level"`
	Timestamp int64  `json:"timestamp"`
}

// MessageBroker is the pub/sub abstraction. Implementations must be safe for
// concurrent use.
type MessageBroker interface {
	Publish(ctx context.Context, channel string, message Message) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
	Close() error
	Type() string
}
