// Package hub is the registry of resident rooms. Rooms are created on demand
// and hydrated from the store the first time someone asks for them.
package hub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/metrics"
	"github.com/DoyleJ11/connect4-backend/internal/room"
	"github.com/DoyleJ11/connect4-backend/internal/store"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrClosed       = errors.New("hub closed")
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Reply chan RoomResult
}

type GetRoom struct {
	ID    string
	Reply chan RoomResult
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

type RoomResult struct {
	Room *room.Room
	Err  error
}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Store        store.Store
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
	// NewID generates room ids; defaults to random UUIDs.
	NewID func() string
}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		log:    opts.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- h.create()

			case GetRoom:
				msg.Reply <- h.get(msg.ID)

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create() RoomResult {
	id := h.opts.NewID()
	ctx, cancel := context.WithTimeout(h.ctx, h.opts.StoreTimeout)
	defer cancel()

	if err := h.opts.Store.CreateRoom(ctx, id); err != nil {
		h.log.Error("create room failed", zap.String("room", id), zap.Error(err))
		h.opts.Metrics.StoreError("CreateRoom")
		return RoomResult{Err: err}
	}
	session := room.NewSession(id)
	if err := h.opts.Store.SaveSnapshot(ctx, id, session.Snapshot()); err != nil {
		// The room exists; hydration falls back to an empty board.
		h.log.Warn("initial snapshot failed", zap.String("room", id), zap.Error(err))
		h.opts.Metrics.StoreError("SaveSnapshot")
	}
	h.log.Info("room created", zap.String("room", id))
	return RoomResult{Room: h.start(session)}
}

// get returns the resident room or hydrates it. Only rooms the store knows
// about can be hydrated.
func (h *Hub) get(id string) RoomResult {
	if r := h.rooms[id]; r != nil {
		select {
		case <-r.Done():
			delete(h.rooms, id) // stopped; load it again
			h.opts.Metrics.RoomUnloaded()
		default:
			return RoomResult{Room: r}
		}
	}

	ctx, cancel := context.WithTimeout(h.ctx, h.opts.StoreTimeout)
	defer cancel()

	session, err := h.hydrate(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			h.log.Error("hydrate room failed", zap.String("room", id), zap.Error(err))
		}
		return RoomResult{Err: err}
	}
	h.log.Info("room hydrated", zap.String("room", id))
	return RoomResult{Room: h.start(session)}
}

func (h *Hub) hydrate(ctx context.Context, id string) (*room.Session, error) {
	st := h.opts.Store
	ok, err := st.RoomExists(ctx, id)
	if err != nil {
		h.opts.Metrics.StoreError("RoomExists")
		return nil, err
	}
	if !ok {
		return nil, ErrRoomNotFound
	}

	score, err := st.ReadScore(ctx, id)
	if err != nil {
		h.opts.Metrics.StoreError("ReadScore")
		return nil, err
	}

	snap, err := st.LoadSnapshot(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		session := room.NewSession(id)
		session.Game.Current = startingPlayer(score)
		return session, nil
	case err != nil:
		h.opts.Metrics.StoreError("LoadSnapshot")
		return nil, err
	}
	return room.FromSnapshot(id, snap, score), nil
}

func (h *Hub) start(session *room.Session) *room.Room {
	r := room.NewRoom(h.ctx, session, room.Options{
		Store:        h.opts.Store,
		Logger:       h.opts.Logger,
		Metrics:      h.opts.Metrics,
		StoreTimeout: h.opts.StoreTimeout,
	})
	h.rooms[session.RoomID] = r
	h.opts.Metrics.RoomLoaded()
	return r
}

func (h *Hub) shutdown() {
	for id, r := range h.rooms {
		select {
		case r.Inbox() <- room.Shutdown{}:
		case <-r.Done():
		}
		h.opts.Metrics.RoomUnloaded()
		delete(h.rooms, id)
	}
	h.cancel()
}

func (h *Hub) request(ctx context.Context, msg HubMsg, reply chan RoomResult) (*room.Room, error) {
	select {
	case h.inbox <- msg:
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create registers a new room in the store and makes it resident.
func (h *Hub) Create(ctx context.Context) (*room.Room, error) {
	reply := make(chan RoomResult, 1)
	return h.request(ctx, CreateRoom{Reply: reply}, reply)
}

// Get returns a resident room, hydrating it from the store if needed. It
// fails with ErrRoomNotFound for ids the store has never seen.
func (h *Hub) Get(ctx context.Context, id string) (*room.Room, error) {
	reply := make(chan RoomResult, 1)
	return h.request(ctx, GetRoom{ID: id, Reply: reply}, reply)
}

func (h *Hub) Resident(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.inbox <- CountRooms{Reply: reply}:
	case <-h.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-h.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Shutdown stops every room and then the hub itself.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return
	}
	<-h.done
}

func startingPlayer(score store.Score) engine.Player {
	if score.NextStartingSlot == 2 {
		return engine.Player2
	}
	return engine.Player1
}
