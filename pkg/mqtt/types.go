package mqtt

import (
	"context"
)

// Publisher is the part of a Client needed to report outcomes.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error
}

// Client is a publish-only MQTT session managed by autopaho.
type Client interface {
	Publisher

	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error

	// IsConnected returns true if the last connection attempt succeeded and
	// the broker has not asked us to leave since.
	IsConnected() bool
}
