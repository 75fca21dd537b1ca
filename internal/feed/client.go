package feed

import "complaintbot/backend/internal/models"

// Client is one live subscriber of complaint events (e.g. an operator dashboard
// connected over WebSocket).
type Client interface {
	// GetClientID returns the unique connection id.
	GetClientID() string
	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.FeedEvent
	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the send channel, which stops the write pump.
	Close()
}
