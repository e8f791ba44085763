package core

import "sync"

const defaultEventBuffer = 256

// Client is a connection as seen by the core layer.
//
// Commands is written by the transport and drained by the hub; Events is
// written only by the hub and closed by it once the client is unregistered.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	// room is the code of the current room, owned by the hub goroutine.
	room string
	gone chan struct{}

	leaving   chan struct{}
	leaveOnce sync.Once
}

// NewClient constructs a client with initialized channels. eventBuffer bounds
// how many undelivered events may queue before new ones are dropped.
func NewClient(id string, eventBuffer int) *Client {
	if eventBuffer <= 0 {
		eventBuffer = defaultEventBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, eventBuffer),
		gone:     make(chan struct{}),
		leaving:  make(chan struct{}),
	}
}
