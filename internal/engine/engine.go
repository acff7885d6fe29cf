package engine

import (
	"errors"
)

var ErrOutOfTurn = errors.New("not your turn")
var ErrNoPendingMove = errors.New("no pending move")
var ErrColumnFull = errors.New("column full")
var ErrInvalidColumn = errors.New("invalid column")
var ErrGameDecided = errors.New("game already decided")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomePlayer1 Outcome = "player1"
	OutcomePlayer2 Outcome = "player2"
	OutcomeDraw    Outcome = "draw"
)

func WinnerOf(p Player) Outcome {
	switch p {
	case Player1:
		return OutcomePlayer1
	case Player2:
		return OutcomePlayer2
	default:
		return OutcomeNone
	}
}

func (o Outcome) Decided() bool { return o != OutcomeNone }

// Player returns the winning slot, or NoPlayer for a draw or undecided game.
func (o Outcome) Player() Player {
	switch o {
	case OutcomePlayer1:
		return Player1
	case OutcomePlayer2:
		return Player2
	default:
		return NoPlayer
	}
}

type Move struct {
	Row    int
	Column int
	Player Player
}

type State struct {
	Board   Board
	Current Player
	Winner  Outcome
	Pending *Move
	Moves   int
}

type CommandType string

const (
	CmdPreviewMove CommandType = "PreviewMove"
	CmdCancelMove  CommandType = "CancelMove"
	CmdConfirmMove CommandType = "ConfirmMove"
)

/*
	CmdPreviewMove -> EvtMovePreviewed (requester only)
	CmdCancelMove  -> EvtMoveCancelled (requester only)
	CmdConfirmMove -> EvtMoveCommitted -> EvtTurnAdvanced | EvtGameWon | EvtGameDrawn
	CmdConfirmMove with Early -> EvtMoveCommitted -> EvtTurnAdvanced, never a result
*/

type Command struct {
	Type   CommandType
	Player Player
	Column int
	// Early commits the opening move of slot 1 before the opponent has joined.
	Early bool
}

type EventType string

const (
	EvtMovePreviewed EventType = "MovePreviewed"
	EvtMoveCancelled EventType = "MoveCancelled"
	EvtMoveCommitted EventType = "MoveCommitted"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtGameWon       EventType = "GameWon"
	EvtGameDrawn     EventType = "GameDrawn"
)

type Event struct {
	Type EventType
	Move Move
}

func NewState(starter Player) State {
	if !starter.Valid() {
		starter = Player1
	}
	return State{Current: starter}
}

// EarlyMoveAvailable reports whether slot 1 may still commit the opening move
// alone.
func EarlyMoveAvailable(s State) bool {
	return !s.Winner.Decided() && s.Moves == 0 && s.Current == Player1
}

// Apply validates cmd against s and returns the resulting events and state.
// On error the returned state is s unchanged.
func Apply(s State, cmd Command) ([]Event, State, error) {
	newState := s

	switch cmd.Type {
	case CmdPreviewMove:
		if s.Winner.Decided() {
			return nil, s, ErrGameDecided
		}
		if cmd.Player != s.Current {
			return nil, s, ErrOutOfTurn
		}
		if cmd.Column < 0 || cmd.Column >= Cols {
			return nil, s, ErrInvalidColumn
		}
		row, ok := DropRow(s.Board, cmd.Column)
		if !ok {
			return nil, s, ErrColumnFull
		}

		// Last preview wins; there is never more than one pending move.
		move := Move{Row: row, Column: cmd.Column, Player: cmd.Player}
		newState.Pending = &move
		return []Event{{Type: EvtMovePreviewed, Move: move}}, newState, nil

	case CmdCancelMove:
		if s.Pending == nil {
			return []Event{{Type: EvtMoveCancelled}}, s, nil
		}
		if s.Pending.Player != cmd.Player {
			return nil, s, ErrOutOfTurn
		}
		move := *s.Pending
		newState.Pending = nil
		return []Event{{Type: EvtMoveCancelled, Move: move}}, newState, nil

	case CmdConfirmMove:
		if s.Winner.Decided() {
			return nil, s, ErrGameDecided
		}
		if s.Pending == nil {
			return nil, s, ErrNoPendingMove
		}
		if cmd.Player != s.Current || s.Pending.Player != s.Current {
			return nil, s, ErrOutOfTurn
		}
		if cmd.Early && !EarlyMoveAvailable(s) {
			return nil, s, ErrOutOfTurn
		}

		// The preview row is re-derived so a stale preview can never break gravity.
		row, ok := DropRow(s.Board, s.Pending.Column)
		if !ok {
			return nil, s, ErrColumnFull
		}
		move := Move{Row: row, Column: s.Pending.Column, Player: cmd.Player}
		newState.Board[row][move.Column] = move.Player
		newState.Moves++
		newState.Pending = nil

		events := []Event{{Type: EvtMoveCommitted, Move: move}}

		if cmd.Early {
			newState.Current = move.Player.Other()
			return append(events, Event{Type: EvtTurnAdvanced, Move: move}), newState, nil
		}

		if CheckWin(newState.Board, row, move.Column, move.Player) {
			newState.Winner = WinnerOf(move.Player)
			return append(events, Event{Type: EvtGameWon, Move: move}), newState, nil
		}
		if IsFull(newState.Board) {
			newState.Winner = OutcomeDraw
			return append(events, Event{Type: EvtGameDrawn, Move: move}), newState, nil
		}

		newState.Current = move.Player.Other()
		return append(events, Event{Type: EvtTurnAdvanced, Move: move}), newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
