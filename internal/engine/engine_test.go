package engine

import (
	"errors"
	"testing"
)

func stateWithPending(current Player, column int) State {
	s := NewState(current)
	row, _ := DropRow(s.Board, column)
	s.Pending = &Move{Row: row, Column: column, Player: current}
	return s
}

func TestPreview_RejectsWrongTurnAndDecided(t *testing.T) {
	cases := []struct {
		name    string
		setup   State
		cmd     Command
		wantErr error
	}{
		{
			name:    "wrong slot",
			setup:   NewState(Player1),
			cmd:     Command{Type: CmdPreviewMove, Player: Player2, Column: 0},
			wantErr: ErrOutOfTurn,
		},
		{
			name:    "decided game",
			setup:   State{Current: Player1, Winner: OutcomePlayer2},
			cmd:     Command{Type: CmdPreviewMove, Player: Player1, Column: 0},
			wantErr: ErrGameDecided,
		},
		{
			name:    "column out of range",
			setup:   NewState(Player1),
			cmd:     Command{Type: CmdPreviewMove, Player: Player1, Column: 7},
			wantErr: ErrInvalidColumn,
		},
		{
			name: "full column",
			setup: func() State {
				s := NewState(Player1)
				for r := 0; r < Rows; r++ {
					s.Board[r][2] = Player2
				}
				return s
			}(),
			cmd:     Command{Type: CmdPreviewMove, Player: Player1, Column: 2},
			wantErr: ErrColumnFull,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, next, err := Apply(tc.setup, tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if events != nil {
				t.Fatalf("expected no events, got %+v", events)
			}
			if next.Pending != nil {
				t.Fatalf("expected no pending move")
			}
		})
	}
}

func TestPreview_LastPreviewWins(t *testing.T) {
	s := NewState(Player1)

	_, s, err := Apply(s, Command{Type: CmdPreviewMove, Player: Player1, Column: 2})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	_, s, err = Apply(s, Command{Type: CmdPreviewMove, Player: Player1, Column: 2})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if s.Pending == nil || s.Pending.Column != 2 || s.Pending.Row != Rows-1 {
		t.Fatalf("want single pending move at col 2, got %+v", s.Pending)
	}

	events, s, err := Apply(s, Command{Type: CmdPreviewMove, Player: Player1, Column: 5})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtMovePreviewed) {
		t.Fatalf("expected EvtMovePreviewed")
	}
	if s.Pending.Column != 5 {
		t.Fatalf("want latest preview col 5, got %d", s.Pending.Column)
	}
	if s.Board.Count() != 0 {
		t.Fatalf("preview must not touch the board")
	}
}

func TestCancel(t *testing.T) {
	s := stateWithPending(Player1, 3)

	_, _, err := Apply(s, Command{Type: CmdCancelMove, Player: Player2})
	if !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("opponent cancel: want ErrOutOfTurn, got %v", err)
	}

	events, next, err := Apply(s, Command{Type: CmdCancelMove, Player: Player1})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtMoveCancelled) || next.Pending != nil {
		t.Fatalf("expected cancelled pending move, got %+v", next.Pending)
	}
	if next.Current != Player1 {
		t.Fatalf("cancel must not change turn")
	}

	// Cancelling with nothing pending is acknowledged and changes nothing.
	events, again, err := Apply(next, Command{Type: CmdCancelMove, Player: Player1})
	if err != nil || !ContainsEvent(events, EvtMoveCancelled) || again.Pending != nil {
		t.Fatalf("idle cancel: events=%+v err=%v", events, err)
	}
}

func TestConfirm_Rejections(t *testing.T) {
	if _, _, err := Apply(NewState(Player1), Command{Type: CmdConfirmMove, Player: Player1}); !errors.Is(err, ErrNoPendingMove) {
		t.Fatalf("want ErrNoPendingMove, got %v", err)
	}

	s := stateWithPending(Player1, 0)
	if _, _, err := Apply(s, Command{Type: CmdConfirmMove, Player: Player2}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("want ErrOutOfTurn, got %v", err)
	}

	s.Winner = OutcomeDraw
	if _, _, err := Apply(s, Command{Type: CmdConfirmMove, Player: Player1}); !errors.Is(err, ErrGameDecided) {
		t.Fatalf("want ErrGameDecided, got %v", err)
	}
}

func TestConfirm_TurnAlternation(t *testing.T) {
	s := stateWithPending(Player1, 4)

	events, next, err := Apply(s, Command{Type: CmdConfirmMove, Player: Player1})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtMoveCommitted) || !ContainsEvent(events, EvtTurnAdvanced) {
		t.Fatalf("expected commit + turn advance, got %+v", events)
	}
	if next.Current != Player2 {
		t.Fatalf("want current=2, got %d", next.Current)
	}
	if next.Board[Rows-1][4] != Player1 {
		t.Fatalf("expected piece at bottom of col 4")
	}
	if next.Pending != nil || next.Moves != 1 {
		t.Fatalf("want pending cleared and 1 move, got %+v moves=%d", next.Pending, next.Moves)
	}
}

func TestConfirm_WinKeepsTurn(t *testing.T) {
	s := NewState(Player1)
	for c := 0; c < 3; c++ {
		s.Board[Rows-1][c] = Player1
		s.Board[Rows-2][c] = Player2
	}
	s.Moves = 6
	s.Pending = &Move{Row: Rows - 1, Column: 3, Player: Player1}

	events, next, err := Apply(s, Command{Type: CmdConfirmMove, Player: Player1})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtGameWon) {
		t.Fatalf("expected EvtGameWon, got %+v", events)
	}
	if next.Winner != OutcomePlayer1 {
		t.Fatalf("want winner player1, got %q", next.Winner)
	}
	if next.Current != Player1 {
		t.Fatalf("terminal confirm must leave current unchanged, got %d", next.Current)
	}
}

func TestConfirm_LastCellDraws(t *testing.T) {
	b := drawBoard()
	last := b[0][6]
	b[0][6] = NoPlayer

	s := State{Board: b, Current: last, Moves: Rows*Cols - 1}
	s.Pending = &Move{Row: 0, Column: 6, Player: last}

	events, next, err := Apply(s, Command{Type: CmdConfirmMove, Player: last})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !ContainsEvent(events, EvtGameDrawn) || next.Winner != OutcomeDraw {
		t.Fatalf("expected draw, got events=%+v winner=%q", events, next.Winner)
	}
	if next.Current != last {
		t.Fatalf("draw must leave current unchanged")
	}
}

func TestConfirm_EarlyMove(t *testing.T) {
	s := stateWithPending(Player1, 3)

	events, next, err := Apply(s, Command{Type: CmdConfirmMove, Player: Player1, Early: true})
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if ContainsEvent(events, EvtGameWon) || ContainsEvent(events, EvtGameDrawn) {
		t.Fatalf("early move never resolves a result")
	}
	if next.Current != Player2 || next.Board[Rows-1][3] != Player1 {
		t.Fatalf("want piece placed and turn flipped, got current=%d", next.Current)
	}
	if EarlyMoveAvailable(next) {
		t.Fatalf("early move is only available once")
	}

	// A second early move by slot 1 is out of turn.
	next.Current = Player1
	next.Pending = &Move{Row: Rows - 1, Column: 0, Player: Player1}
	if _, _, err := Apply(next, Command{Type: CmdConfirmMove, Player: Player1, Early: true}); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("want ErrOutOfTurn, got %v", err)
	}
}

func TestApply_UnsupportedCommand(t *testing.T) {
	if _, _, err := Apply(NewState(Player1), Command{Type: "Resign"}); !errors.Is(err, ErrUnsupportedCommand) {
		t.Fatalf("want ErrUnsupportedCommand, got %v", err)
	}
}
