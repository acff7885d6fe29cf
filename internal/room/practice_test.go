package room

import (
	"testing"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

func TestRoom_PracticeIsPrivateAndSeparate(t *testing.T) {
	h := newHarness(t)
	p1, _ := h.join("c1", "alice")
	drain(p1)

	h.send("c1", types.ClientMessage{Type: types.MsgStartPractice})
	started := expectEvent(t, p1, types.EvtPracticeStarted)
	if started.Practice == nil || started.Practice.CurrentPlayer != 1 {
		t.Fatalf("practice should start with slot 1 to move: %+v", started.Practice)
	}

	h.send("c1", types.ClientMessage{Type: types.MsgPracticeMove, Column: col(0)})
	made := expectEvent(t, p1, types.EvtPracticeMoveMade)
	if made.Practice.CurrentPlayer != 2 || made.Practice.Board[engine.Rows-1][0] != 1 {
		t.Fatalf("practice move: got %+v", made.Practice)
	}

	v := h.view()
	if v.Game.Board.Count() != 0 || v.Game.Moves != 0 {
		t.Fatalf("practice must not touch the main game: %+v", v.Game)
	}
	if v.Practice == nil || v.Practice.Board.Count() != 1 {
		t.Fatalf("practice board not tracked: %+v", v.Practice)
	}

	h.send("c1", types.ClientMessage{Type: types.MsgResetPractice})
	reset := expectEvent(t, p1, types.EvtPracticeReset)
	if reset.Practice.Board[engine.Rows-1][0] != 0 {
		t.Fatalf("reset should clear the practice board")
	}

	h.send("c1", types.ClientMessage{Type: types.MsgEndPractice})
	expectEvent(t, p1, types.EvtPracticeEnded)
	if v := h.view(); v.Practice != nil {
		t.Fatalf("practice should be gone after end")
	}
}

func TestRoom_PracticeWin(t *testing.T) {
	h := newHarness(t)
	p1, _ := h.join("c1", "alice")
	drain(p1)

	h.send("c1", types.ClientMessage{Type: types.MsgStartPractice})
	for i := 0; i < 3; i++ {
		h.send("c1", types.ClientMessage{Type: types.MsgPracticeMove, Column: col(0)})
		h.send("c1", types.ClientMessage{Type: types.MsgPracticeMove, Column: col(1)})
	}
	h.send("c1", types.ClientMessage{Type: types.MsgPracticeMove, Column: col(0)})
	h.view()

	won := lastEvent(t, p1)
	if won.Type != types.EvtPracticeWon || won.Practice.Winner != "player1" {
		t.Fatalf("want practiceWon for player1, got %+v", won)
	}
	if v := h.view(); v.Score.GamesPlayed != 0 {
		t.Fatalf("practice results must not be scored: %+v", v.Score)
	}
}

func TestRoom_PracticeEndsWhenOpponentJoins(t *testing.T) {
	h := newHarness(t)
	p1, _ := h.join("c1", "alice")
	drain(p1)

	h.send("c1", types.ClientMessage{Type: types.MsgStartPractice})
	expectEvent(t, p1, types.EvtPracticeStarted)

	h.join("c2", "bob")
	expectEvent(t, p1, types.EvtOpponentJoined)
	expectEvent(t, p1, types.EvtPracticeEnded)
	expectEvent(t, p1, types.EvtGameStart)

	h.send("c1", types.ClientMessage{Type: types.MsgStartPractice})
	refused := expectEvent(t, p1, types.EvtError)
	if refused.Code != types.CodePracticeUnavailable {
		t.Fatalf("want PRACTICE_UNAVAILABLE, got %+v", refused)
	}
}

func TestRoom_PracticeDiscardedOnDisconnect(t *testing.T) {
	h := newHarness(t)
	p1, _ := h.join("c1", "alice")
	drain(p1)

	h.send("c1", types.ClientMessage{Type: types.MsgStartPractice})
	expectEvent(t, p1, types.EvtPracticeStarted)
	h.room.Inbox() <- Leave{ConnID: "c1"}

	if v := h.view(); v.Practice != nil {
		t.Fatalf("practice should not outlive its connection")
	}
}
