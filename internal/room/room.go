// Package room runs one goroutine per game room. Every event for a room is
// applied by that goroutine in arrival order, so the session needs no locks.
package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/metrics"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

var (
	ErrRoomFull            = errors.New("room is full")
	ErrIdentityRequired    = errors.New("identity required")
	ErrPracticeUnavailable = errors.New("practice unavailable")
	ErrClosed              = errors.New("room closed")
	ErrDisconnected        = errors.New("connection dropped while joining")
)

type Msg interface{ isRoomMsg() }

type FromClient struct {
	ConnID string
	Msg    types.ClientMessage
}

func (FromClient) isRoomMsg() {}

type Join struct {
	ConnID   string
	Identity string
	Outbox   chan types.ServerMessage // where this connection receives events
	Reply    chan JoinResult
}

func (Join) isRoomMsg() {}

type JoinResult struct {
	Slot      engine.Player
	Returning bool
	Err       error
}

type Leave struct{ ConnID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// View is a race-free copy of the session for tests and read endpoints.
type View struct {
	RoomID       string
	Game         engine.State
	Started      bool
	Slots        map[string]engine.Player
	Live         map[engine.Player]bool
	NumClients   int
	RematchVotes int
	Practice     *engine.Practice
	Score        store.Score
}

type Options struct {
	Store        store.Store
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
}

type Room struct {
	id      string
	inbox   chan Msg
	session *Session
	clients map[string]chan types.ServerMessage

	store        store.Store
	logger       *zap.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRoom(parent context.Context, session *Session, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	r := &Room{
		id:           session.RoomID,
		inbox:        make(chan Msg, 64),
		session:      session,
		clients:      make(map[string]chan types.ServerMessage),
		store:        opts.Store,
		logger:       logger.With(zap.String("room", session.RoomID)),
		metrics:      opts.Metrics,
		storeTimeout: timeout,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	go r.loop()
	return r
}

func (r *Room) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				res := r.handleJoin(msg)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case Leave:
				r.handleLeave(msg.ConnID)

			case FromClient:
				r.handleClient(msg)

			case GetState:
				msg.Reply <- r.view()

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleClient(msg FromClient) {
	slot, ok := r.session.slotOf(msg.ConnID)
	if !ok {
		return
	}
	label := "unknown"
	if msg.Msg.Type.Known() {
		label = string(msg.Msg.Type)
	}
	r.metrics.Event(label)

	switch msg.Msg.Type {
	case types.MsgPreviewMove:
		if msg.Msg.Column == nil {
			r.send(msg.ConnID, types.ErrorMessage(types.CodeBadMessage, "column required"))
			return
		}
		r.handlePreview(msg.ConnID, slot, *msg.Msg.Column)
	case types.MsgConfirmMove:
		r.handleConfirm(msg.ConnID, slot)
	case types.MsgCancelMove:
		r.handleCancel(msg.ConnID, slot)

	case types.MsgRequestRematch, types.MsgAcceptRematch:
		r.handleRematchVote(msg.ConnID, msg.Msg.Quick)
	case types.MsgDeclineRematch:
		r.handleRematchDecline()

	case types.MsgStartPractice:
		r.handleStartPractice(msg.ConnID)
	case types.MsgPracticeMove:
		if msg.Msg.Column == nil {
			r.send(msg.ConnID, types.ErrorMessage(types.CodeBadMessage, "column required"))
			return
		}
		r.handlePracticeMove(msg.ConnID, *msg.Msg.Column)
	case types.MsgResetPractice:
		r.handleResetPractice(msg.ConnID)
	case types.MsgEndPractice:
		r.handleEndPractice(msg.ConnID)

	case types.MsgJoin:
		// already joined on this connection
	default:
		r.send(msg.ConnID, types.ErrorMessage(types.CodeBadMessage, "unknown message type"))
	}
}

func (r *Room) shutdown() {
	for id := range r.clients {
		r.dropClient(id)
	}
	r.cancel()
}

// send delivers to one connection. A full outbox means the client cannot keep
// up, so it is disconnected.
func (r *Room) send(connID string, msg types.ServerMessage) {
	ch, ok := r.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		r.logger.Warn("dropping slow client", zap.String("conn", connID))
		r.handleLeave(connID)
	}
}

func (r *Room) broadcast(msg types.ServerMessage) {
	var slow []string
	for id, ch := range r.clients {
		select {
		case ch <- msg:
			//ok
		default:
			slow = append(slow, id)
		}
	}
	for _, id := range slow {
		r.logger.Warn("dropping slow client", zap.String("conn", id))
		r.handleLeave(id)
	}
}

// sendSlot delivers to whoever currently holds slot, if anyone.
func (r *Room) sendSlot(slot engine.Player, msg types.ServerMessage) {
	if conn := r.session.slotConn[slot]; conn != "" {
		r.send(conn, msg)
	}
}

func (r *Room) dropClient(connID string) {
	ch, ok := r.clients[connID]
	if !ok {
		return
	}
	close(ch) // no more events for this connection
	delete(r.clients, connID)
	r.metrics.Disconnected()
}

// persist runs one store operation under the store timeout. Failures are
// logged and reported to connID; the in-memory session stays authoritative.
func (r *Room) persist(connID, op string, fn func(ctx context.Context) error) bool {
	if r.store == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(r.ctx, r.storeTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		r.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
		r.metrics.StoreError(op)
		if connID != "" {
			r.send(connID, types.ErrorMessage(types.CodeStoreFailure, "game progress could not be saved"))
		}
		return false
	}
	return true
}

func (r *Room) saveSnapshot(connID string) bool {
	snap := r.session.Snapshot()
	return r.persist(connID, "SaveSnapshot", func(ctx context.Context) error {
		return r.store.SaveSnapshot(ctx, r.id, snap)
	})
}

func (r *Room) view() View {
	s := r.session
	v := View{
		RoomID:       s.RoomID,
		Game:         s.Game,
		Started:      s.Started,
		Slots:        make(map[string]engine.Player, len(s.identityToSlot)),
		Live:         make(map[engine.Player]bool, 2),
		NumClients:   len(r.clients),
		RematchVotes: len(s.rematchVotes),
		Score:        s.score,
	}
	if s.Game.Pending != nil {
		pending := *s.Game.Pending
		v.Game.Pending = &pending
	}
	for identity, slot := range s.identityToSlot {
		v.Slots[identity] = slot
	}
	for _, slot := range []engine.Player{engine.Player1, engine.Player2} {
		v.Live[slot] = s.live(slot)
	}
	if s.practice != nil {
		p := s.practice.game
		v.Practice = &p
	}
	return v
}

func (r *Room) ID() string { return r.id }

// Inbox exposes the room's inbox so tests or the WS layer can send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Send delivers msg unless ctx ends or the room has shut down.
func (r *Room) Send(ctx context.Context, msg Msg) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case r.inbox <- msg:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join registers a connection and waits for its slot assignment.
func (r *Room) Join(ctx context.Context, connID, identity string, outbox chan types.ServerMessage) (JoinResult, error) {
	reply := make(chan JoinResult, 1)
	msg := Join{ConnID: connID, Identity: identity, Outbox: outbox, Reply: reply}
	if err := r.Send(ctx, msg); err != nil {
		return JoinResult{}, err
	}
	select {
	case res := <-reply:
		return res, res.Err
	case <-r.done:
		return JoinResult{}, ErrClosed
	case <-ctx.Done():
		return JoinResult{}, ctx.Err()
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// CodeFor maps a room or engine error to the wire error code.
func CodeFor(err error) types.ErrorCode {
	switch {
	case errors.Is(err, ErrRoomFull):
		return types.CodeRoomFull
	case errors.Is(err, ErrIdentityRequired):
		return types.CodeIdentityRequired
	case errors.Is(err, ErrPracticeUnavailable):
		return types.CodePracticeUnavailable
	case errors.Is(err, engine.ErrOutOfTurn):
		return types.CodeOutOfTurn
	case errors.Is(err, engine.ErrNoPendingMove):
		return types.CodeNoPendingMove
	case errors.Is(err, engine.ErrColumnFull), errors.Is(err, engine.ErrInvalidColumn):
		return types.CodeColumnFull
	case errors.Is(err, engine.ErrGameDecided), errors.Is(err, engine.ErrPracticeOver):
		return types.CodeGameAlreadyDecided
	default:
		return types.CodeBadMessage
	}
}
