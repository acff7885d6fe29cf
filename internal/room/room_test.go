package room

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/metrics"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/internal/store/memstore"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

const within = 200 * time.Millisecond

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan types.ServerMessage) types.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return types.ServerMessage{} // unreachable
	}
}

// expectEvent receives the next event and checks its type.
func expectEvent(t *testing.T, ch <-chan types.ServerMessage, want types.ServerType) types.ServerMessage {
	t.Helper()
	msg := recvEvent(t, ch)
	if msg.Type != want {
		t.Fatalf("want event %q, got %+v", want, msg)
	}
	return msg
}

func recvNoEvent(t *testing.T, ch <-chan types.ServerMessage) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			// channel closed → no further events possible
			return
		}
		t.Fatalf("expected no event, but got: %+v", msg)
	default:
	}
}

func drain(ch <-chan types.ServerMessage) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func col(c int) *int { return &c }

type harness struct {
	t     *testing.T
	room  *Room
	store *memstore.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := memstore.New()
	if err := st.CreateRoom(context.Background(), "r1"); err != nil {
		t.Fatalf("create room: %v", err)
	}
	return newHarnessWith(t, st, NewSession("r1"))
}

func newHarnessWith(t *testing.T, st *memstore.Store, session *Session) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := NewRoom(ctx, session, Options{Store: st, StoreTimeout: time.Second})
	return &harness{t: t, room: r, store: st}
}

func (h *harness) join(connID, identity string) (chan types.ServerMessage, JoinResult) {
	h.t.Helper()
	out := make(chan types.ServerMessage, 16)
	res, err := h.room.Join(context.Background(), connID, identity, out)
	if err != nil {
		h.t.Fatalf("join %s as %s: %v", connID, identity, err)
	}
	return out, res
}

func (h *harness) send(connID string, msg types.ClientMessage) {
	h.room.Inbox() <- FromClient{ConnID: connID, Msg: msg}
}

// view waits until every earlier message has been handled.
func (h *harness) view() View {
	h.t.Helper()
	v, err := h.room.State(context.Background())
	if err != nil {
		h.t.Fatalf("state: %v", err)
	}
	return v
}

// started joins two players and drains the join chatter.
func (h *harness) started() (p1, p2 chan types.ServerMessage) {
	h.t.Helper()
	p1, _ = h.join("c1", "alice")
	p2, _ = h.join("c2", "bob")
	h.view()
	drain(p1)
	drain(p2)
	return p1, p2
}

func (h *harness) play(connID string, column int) {
	h.send(connID, types.ClientMessage{Type: types.MsgPreviewMove, Column: col(column)})
	h.send(connID, types.ClientMessage{Type: types.MsgConfirmMove})
}

func TestRoom_JoinAssignsSlotsInOrder(t *testing.T) {
	h := newHarness(t)

	p1, res := h.join("c1", "alice")
	if res.Slot != engine.Player1 || res.Returning {
		t.Fatalf("first join: want slot 1 new, got %+v", res)
	}
	first := expectEvent(t, p1, types.EvtAssignedSlot)
	if first.Slot != 1 || first.State == nil || first.State.Started {
		t.Fatalf("first join: unexpected greeting %+v", first)
	}
	waiting := expectEvent(t, p1, types.EvtWaitingForOpponent)
	if !waiting.EarlyMove {
		t.Fatalf("slot 1 alone on an empty board should be offered the early move")
	}

	p2, res := h.join("c2", "bob")
	if res.Slot != engine.Player2 {
		t.Fatalf("second join: want slot 2, got %+v", res)
	}
	expectEvent(t, p2, types.EvtAssignedSlot)
	start := expectEvent(t, p2, types.EvtGameStart)
	if !start.State.Started || start.State.Connected != [2]bool{true, true} {
		t.Fatalf("game start: unexpected state %+v", start.State)
	}

	joined := expectEvent(t, p1, types.EvtOpponentJoined)
	if joined.Slot != 2 {
		t.Fatalf("opponentJoined: want slot 2, got %d", joined.Slot)
	}
	expectEvent(t, p1, types.EvtGameStart)

	v := h.view()
	if !v.Started || v.NumClients != 2 {
		t.Fatalf("want started room with 2 clients, got %+v", v)
	}
	if v.Slots["alice"] != engine.Player1 || v.Slots["bob"] != engine.Player2 {
		t.Fatalf("unexpected slot map %+v", v.Slots)
	}

	snap, err := h.store.LoadSnapshot(context.Background(), "r1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snap.Players[0] != "alice" || snap.Players[1] != "bob" {
		t.Fatalf("persisted players: got %v", snap.Players)
	}
	if _, ok := h.store.LastActivity("r1"); !ok {
		t.Fatalf("activity was not recorded")
	}
}

func TestRoom_ThirdIdentityIsRejected(t *testing.T) {
	h := newHarness(t)
	h.started()

	out := make(chan types.ServerMessage, 4)
	_, err := h.room.Join(context.Background(), "c3", "carol", out)
	if err != ErrRoomFull {
		t.Fatalf("want ErrRoomFull, got %v", err)
	}
	recvNoEvent(t, out)

	if v := h.view(); v.NumClients != 2 || len(v.Slots) != 2 {
		t.Fatalf("rejected join must not change the room: %+v", v)
	}
}

func TestRoom_JoinRequiresIdentity(t *testing.T) {
	h := newHarness(t)
	out := make(chan types.ServerMessage, 4)
	if _, err := h.room.Join(context.Background(), "c1", "", out); err != ErrIdentityRequired {
		t.Fatalf("want ErrIdentityRequired, got %v", err)
	}
}

func TestRoom_ReconnectRestoresSlot(t *testing.T) {
	h := newHarness(t)
	_, p2 := h.started()

	h.room.Inbox() <- Leave{ConnID: "c1"}
	left := expectEvent(t, p2, types.EvtOpponentLeft)
	if left.Slot != 1 {
		t.Fatalf("opponentLeft: want slot 1, got %d", left.Slot)
	}
	if v := h.view(); !v.Started || v.Live[engine.Player1] || v.Slots["alice"] != engine.Player1 {
		t.Fatalf("slot must stay owned and game started after a disconnect: %+v", v)
	}

	p1, res := h.join("c9", "alice")
	if res.Slot != engine.Player1 || !res.Returning {
		t.Fatalf("rejoin: want returning slot 1, got %+v", res)
	}
	back := expectEvent(t, p1, types.EvtWelcomeBack)
	if back.Slot != 1 {
		t.Fatalf("welcomeBack: want slot 1, got %d", back.Slot)
	}
	expectEvent(t, p1, types.EvtGameStart)
	expectEvent(t, p2, types.EvtOpponentJoined)
	expectEvent(t, p2, types.EvtGameStart)
}

func TestRoom_SecondConnectionReplacesStaleOne(t *testing.T) {
	h := newHarness(t)
	old, _ := h.join("c1", "alice")
	drain(old)

	fresh, res := h.join("c2", "alice")
	if res.Slot != engine.Player1 || !res.Returning {
		t.Fatalf("want returning slot 1, got %+v", res)
	}
	expectEvent(t, fresh, types.EvtWelcomeBack)

	if _, ok := <-old; ok {
		t.Fatalf("stale outbox should be closed")
	}

	// A late Leave from the stale connection must not free the slot.
	h.room.Inbox() <- Leave{ConnID: "c1"}
	v := h.view()
	if !v.Live[engine.Player1] || v.NumClients != 1 {
		t.Fatalf("live connection lost after stale leave: %+v", v)
	}
}

func TestRoom_DropSlowClientKeepsSlot(t *testing.T) {
	h := newHarness(t)

	// The greeting fills a zero slot outbox immediately.
	out := make(chan types.ServerMessage)
	if _, err := h.room.Join(context.Background(), "c1", "alice", out); err != ErrDisconnected {
		t.Fatalf("want ErrDisconnected, got %v", err)
	}
	if _, ok := <-out; ok {
		t.Fatalf("outbox of a dropped client should be closed")
	}

	v := h.view()
	if v.NumClients != 0 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", v.NumClients)
	}
	if v.Slots["alice"] != engine.Player1 {
		t.Fatalf("slot must survive a dropped connection: %+v", v.Slots)
	}
	snap, err := h.store.LoadSnapshot(context.Background(), "r1")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(snap.Players) == 0 || snap.Players[0] != "alice" {
		t.Fatalf("slot assignment not persisted: %+v", snap.Players)
	}
}

func TestRoom_RejoinMidGameIsNotOfferedEarlyMove(t *testing.T) {
	h := newHarness(t)
	h.started()
	h.play("c1", 3)
	h.room.Inbox() <- Leave{ConnID: "c1"}
	h.room.Inbox() <- Leave{ConnID: "c2"}
	h.view()

	p2, _ := h.join("c3", "bob")
	expectEvent(t, p2, types.EvtWelcomeBack)
	if waiting := expectEvent(t, p2, types.EvtWaitingForOpponent); waiting.EarlyMove {
		t.Fatalf("slot 2 rejoining a started game must not get the early move")
	}

	p1, _ := h.join("c4", "alice")
	expectEvent(t, p1, types.EvtWelcomeBack)
	expectEvent(t, p1, types.EvtGameStart)
	h.room.Inbox() <- Leave{ConnID: "c3"}
	h.room.Inbox() <- Leave{ConnID: "c4"}
	h.view()

	p1, _ = h.join("c5", "alice")
	expectEvent(t, p1, types.EvtWelcomeBack)
	if waiting := expectEvent(t, p1, types.EvtWaitingForOpponent); waiting.EarlyMove {
		t.Fatalf("slot 1 rejoining a started game must not get the early move")
	}
}

func TestRoom_JoinReportsStoreFailureOnce(t *testing.T) {
	h := newHarness(t)
	h.store.FailOn("TouchActivity", memstore.ErrInjected)
	h.store.FailOn("SaveSnapshot", memstore.ErrInjected)

	p1, _ := h.join("c1", "alice")
	expectEvent(t, p1, types.EvtAssignedSlot)
	if failure := expectEvent(t, p1, types.EvtError); failure.Code != types.CodeStoreFailure {
		t.Fatalf("want STORE_FAILURE, got %+v", failure)
	}
	expectEvent(t, p1, types.EvtWaitingForOpponent)
	h.view()
	recvNoEvent(t, p1)
}

func TestRoom_UnknownMessageTypesShareOneSeries(t *testing.T) {
	st := memstore.New()
	if err := st.CreateRoom(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := NewRoom(ctx, NewSession("r1"), Options{Store: st, Metrics: metrics.New(reg), StoreTimeout: time.Second})
	h := &harness{t: t, room: r, store: st}

	out := make(chan types.ServerMessage, 64)
	if _, err := r.Join(context.Background(), "c1", "alice", out); err != nil {
		t.Fatalf("join: %v", err)
	}
	for i := 0; i < 20; i++ {
		drain(out)
		h.send("c1", types.ClientMessage{Type: types.ClientType(fmt.Sprintf("junk-%d", i))})
		h.view()
	}
	h.send("c1", types.ClientMessage{Type: types.MsgCancelMove})
	h.view()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	labels := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "connect4_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				labels[lp.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	if len(labels) != 2 || labels["unknown"] != 20 || labels["cancelMove"] != 1 {
		t.Fatalf("unexpected events_total series: %v", labels)
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	h := newHarness(t)
	out, _ := h.join("c1", "alice")
	drain(out)

	h.room.Inbox() <- Shutdown{}
	select {
	case <-h.room.Done():
	case <-time.After(within):
		t.Fatalf("room did not stop")
	}
	if _, ok := <-out; ok {
		t.Fatalf("outbox should be closed on shutdown")
	}
	if err := h.room.Send(context.Background(), Leave{ConnID: "c1"}); err != ErrClosed {
		t.Fatalf("want ErrClosed after shutdown, got %v", err)
	}
}

func TestRoom_HydratedSessionKeepsSlots(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()
	if err := st.CreateRoom(ctx, "r1"); err != nil {
		t.Fatal(err)
	}

	var b engine.Board
	b[engine.Rows-1][3] = engine.Player1
	snap := store.Snapshot{Board: b.Ints(), CurrentPlayer: 2, Players: []string{"alice", "bob"}}
	h := newHarnessWith(t, st, FromSnapshot("r1", snap, store.DefaultScore()))

	p2, res := h.join("c2", "bob")
	if res.Slot != engine.Player2 || !res.Returning {
		t.Fatalf("want bob back in slot 2, got %+v", res)
	}
	back := expectEvent(t, p2, types.EvtWelcomeBack)
	if back.State.CurrentPlayer != 2 || back.State.Board[engine.Rows-1][3] != 1 {
		t.Fatalf("hydrated state lost: %+v", back.State)
	}
	expectEvent(t, p2, types.EvtWaitingForOpponent)

	// Nobody may move until both owners are back.
	h.play("c2", 0)
	expectEvent(t, p2, types.EvtWaitingForOpponent)

	if _, err := h.room.Join(ctx, "c3", "carol", make(chan types.ServerMessage, 4)); err != ErrRoomFull {
		t.Fatalf("want ErrRoomFull for a stranger, got %v", err)
	}
}

func TestCodeFor(t *testing.T) {
	cases := map[error]types.ErrorCode{
		ErrRoomFull:             types.CodeRoomFull,
		ErrIdentityRequired:     types.CodeIdentityRequired,
		ErrPracticeUnavailable:  types.CodePracticeUnavailable,
		engine.ErrOutOfTurn:     types.CodeOutOfTurn,
		engine.ErrNoPendingMove: types.CodeNoPendingMove,
		engine.ErrColumnFull:    types.CodeColumnFull,
		engine.ErrGameDecided:   types.CodeGameAlreadyDecided,
		ErrClosed:               types.CodeBadMessage,
	}
	for err, want := range cases {
		if got := CodeFor(err); got != want {
			t.Errorf("CodeFor(%v) = %s, want %s", err, got, want)
		}
	}
}
