package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/metrics"
	"github.com/vovakirdan/droprelay/internal/store"
)

// HistoryRecorder receives rooms once their last member has left.
// Record must not block.
type HistoryRecorder interface {
	Record(session store.RoomSession) bool
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	ReadyRooms  int `json:"readyRooms"`
}

// Options configures a Hub. Zero values fall back to defaults.
type Options struct {
	Codes   *CodeGenerator
	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
	History HistoryRecorder
	Now     func() time.Time
}

// clientCommand is one entry of the hub inbox. leave marks the final entry
// of a connection, queued after all of its commands.
type clientCommand struct {
	client *Client
	cmd    *Command
	leave  bool
}

// Hub is the room registry and connection router. All registry state is
// owned by the goroutine executing Run; everything else talks to it through
// channels.
type Hub struct {
	register chan *Client
	inbox    chan clientCommand
	stats    chan chan Stats
	done     chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]*Room

	codes   *CodeGenerator
	log     *zerolog.Logger
	metrics *metrics.Metrics
	history HistoryRecorder
	now     func() time.Time
}

// NewHub creates a hub. Run must be called exactly once.
func NewHub(opts Options) *Hub {
	if opts.Codes == nil {
		def := config.Default()
		codes, err := NewCodeGenerator(def.RoomCodeLength, def.RoomCodeAlphabet)
		if err != nil {
			panic(fmt.Sprintf("default room code generator: %v", err))
		}
		opts.Codes = codes
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Hub{
		register: make(chan *Client),
		inbox:    make(chan clientCommand, 64),
		stats:    make(chan chan Stats),
		done:     make(chan struct{}),
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]*Room),
		codes:    opts.Codes,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		history:  opts.History,
		now:      opts.Now,
	}
}

// RegisterClient hands a new connection to the hub. Commands sent on
// c.Commands are processed in order once it is registered.
func (h *Hub) RegisterClient(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

// UnregisterClient removes a registered connection, leaving its room. Commands
// already queued on c.Commands are processed first. It returns once the hub has
// dropped the client. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	c.leaveOnce.Do(func() { close(c.leaving) })
	select {
	case <-c.gone:
	case <-h.done:
	}
}

// Stats asks the hub goroutine for current counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Run processes registrations, commands and disconnects until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			if c == nil {
				continue
			}
			h.clients[c] = struct{}{}
			h.metrics.Connections.Inc()
			h.log.Info().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client connected")
			go h.pump(ctx, c)

		case msg := <-h.inbox:
			c := msg.client
			if _, ok := h.clients[c]; !ok {
				// Arrived after the client was dropped.
				continue
			}
			if msg.leave {
				room := c.room
				h.leaveRoom(c)
				h.drop(c)
				h.log.Info().Str("client_id", c.ID).Str("room", room).Int("clients", len(h.clients)).Msg("client disconnected")
				continue
			}
			h.handleCommand(c, msg.cmd)

		case reply := <-h.stats:
			reply <- h.snapshot()
		}
	}
}

// pump forwards one client's commands into the shared inbox, preserving their
// order. Once the client is leaving it flushes what is still queued and then
// queues the leave itself.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if !h.enqueue(ctx, clientCommand{client: c, cmd: cmd}) {
				return
			}
		case <-c.leaving:
			if h.drainCommands(ctx, c) {
				h.enqueue(ctx, clientCommand{client: c, leave: true})
			}
			return
		case <-c.gone:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drainCommands(ctx context.Context, c *Client) bool {
	for {
		select {
		case cmd := <-c.Commands:
			if !h.enqueue(ctx, clientCommand{client: c, cmd: cmd}) {
				return false
			}
		default:
			return true
		}
	}
}

func (h *Hub) enqueue(ctx context.Context, msg clientCommand) bool {
	if msg.cmd == nil && !msg.leave {
		return true
	}
	select {
	case h.inbox <- msg:
		return true
	case <-msg.client.gone:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) handleCommand(c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(c, cmd.Room)
	case CommandRelay:
		h.relay(c, cmd.Payload)
	default:
		h.sendError(c, coreError(ErrCodeBadRequest, fmt.Sprintf("unsupported command %d", cmd.Kind)))
	}
}

func (h *Hub) joinRoom(c *Client, requested string) {
	code := NormalizeRoomCode(requested)
	if len(code) > MaxRoomCodeLength {
		h.sendError(c, coreError(ErrCodeBadRequest, fmt.Sprintf("room code longer than %d characters", MaxRoomCodeLength)))
		return
	}

	if code == "" {
		generated, err := h.freeRoomCode()
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", c.ID).Msg("room code generation failed")
			h.sendError(c, coreError(ErrCodeRoomUnavailable, "could not allocate a room code, try again"))
			return
		}
		code = generated
	}

	if c.room == code {
		h.sendError(c, coreError(ErrCodeAlreadyJoined, fmt.Sprintf("%v: %s", ErrAlreadyJoined, code)))
		return
	}
	if c.room != "" {
		h.leaveRoom(c)
	}

	room, ok := h.rooms[code]
	if !ok {
		room = NewRoom(code, h.now())
		h.rooms[code] = room
		h.metrics.Rooms.Inc()
	}
	room.AddClient(c)
	c.room = code
	h.metrics.Joins.Inc()

	h.log.Info().
		Str("client_id", c.ID).
		Str("room", code).
		Int("members", room.Len()).
		Stringer("state", room.State()).
		Msg("client joined room")

	h.send(c, &Event{Kind: EventRoomJoined, Room: code})

	if room.Ready() {
		for _, member := range room.Members() {
			h.send(member, &Event{Kind: EventReady, Room: code})
		}
		return
	}
	h.send(c, &Event{Kind: EventNotReady, Room: code})
}

// freeRoomCode generates codes until one is not in use.
func (h *Hub) freeRoomCode() (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := h.codes.Generate()
		if err != nil {
			return "", err
		}
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrRoomUnavailable
}

func (h *Hub) relay(c *Client, payload json.RawMessage) {
	room, ok := h.rooms[c.room]
	if c.room == "" || !ok {
		h.log.Debug().Str("client_id", c.ID).Msg("relay ignored, client not in a room")
		return
	}

	room.framesRelayed++
	h.metrics.FramesRelayed.Inc()

	delivered := 0
	for _, member := range room.Members() {
		if member.ID == c.ID {
			continue
		}
		if h.send(member, &Event{Kind: EventFile, Room: room.Code, SenderID: c.ID, Payload: payload}) {
			delivered++
		}
	}
	h.log.Debug().Str("client_id", c.ID).Str("room", room.Code).Int("delivered", delivered).Int("bytes", len(payload)).Msg("frame relayed")
}

// leaveRoom detaches c from its room, notifying or deleting the room as needed.
func (h *Hub) leaveRoom(c *Client) {
	code := c.room
	if code == "" {
		return
	}
	c.room = ""

	room, ok := h.rooms[code]
	if !ok {
		return
	}
	room.RemoveClient(c)

	switch room.State() {
	case RoomEmpty:
		delete(h.rooms, code)
		h.metrics.Rooms.Dec()
		h.recordClosed(room)
		h.log.Info().Str("room", code).Msg("room closed")
	case RoomWaiting:
		for _, member := range room.Members() {
			h.send(member, &Event{Kind: EventNotReady, Room: code})
		}
		h.log.Info().Str("client_id", c.ID).Str("room", code).Int("members", room.Len()).Msg("room waiting for peer")
	default:
		h.log.Info().Str("client_id", c.ID).Str("room", code).Int("members", room.Len()).Msg("client left room")
	}
}

func (h *Hub) recordClosed(room *Room) {
	if h.history == nil {
		return
	}
	session := store.RoomSession{
		Code:          room.Code,
		OpenedAt:      room.OpenedAt,
		ClosedAt:      h.now(),
		PeakMembers:   room.peakMembers,
		FramesRelayed: room.framesRelayed,
	}
	if !h.history.Record(session) {
		h.metrics.HistoryDropped.Inc()
		h.log.Warn().Str("room", room.Code).Msg("history queue full, room session dropped")
	}
}

// send delivers without blocking. A full buffer drops the event for this
// recipient only.
func (h *Hub) send(c *Client, ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		h.metrics.DroppedEvents.Inc()
		h.log.Warn().Str("client_id", c.ID).Stringer("event", ev.Kind).Msg("client buffer full, event dropped")
		return false
	}
}

func (h *Hub) sendError(c *Client, err *CoreError) {
	h.send(c, &Event{Kind: EventError, Room: c.room, Error: err})
}

// drop forgets a client and closes its event stream.
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.gone)
	close(c.Events)
	h.metrics.Connections.Dec()
}

func (h *Hub) snapshot() Stats {
	s := Stats{Connections: len(h.clients), Rooms: len(h.rooms)}
	for _, room := range h.rooms {
		if room.Ready() {
			s.ReadyRooms++
		}
	}
	return s
}

func (h *Hub) shutdown() {
	h.log.Info().Int("clients", len(h.clients)).Int("rooms", len(h.rooms)).Msg("hub shutting down")
	for c := range h.clients {
		h.leaveRoom(c)
		h.drop(c)
	}
}
