package engine

import "errors"

var ErrPracticeOver = errors.New("practice game already decided")

// Practice is a self-play board with its own turn. It shares no state with
// the main game.
type Practice struct {
	Board   Board
	Current Player
	Winner  Outcome
}

// NewPractice starts practice from a copy of board with current to move.
func NewPractice(board Board, current Player) Practice {
	if !current.Valid() {
		current = Player1
	}
	return Practice{Board: board, Current: current}
}

// Drop places the current player's piece in column. Turns only alternate on
// moves that do not decide the practice game.
func (p Practice) Drop(column int) (Move, Practice, error) {
	if p.Winner.Decided() {
		return Move{}, p, ErrPracticeOver
	}
	if column < 0 || column >= Cols {
		return Move{}, p, ErrInvalidColumn
	}
	row, ok := DropRow(p.Board, column)
	if !ok {
		return Move{}, p, ErrColumnFull
	}

	next := p
	move := Move{Row: row, Column: column, Player: p.Current}
	next.Board[row][column] = move.Player

	switch {
	case CheckWin(next.Board, row, column, move.Player):
		next.Winner = WinnerOf(move.Player)
	case IsFull(next.Board):
		next.Winner = OutcomeDraw
	default:
		next.Current = move.Player.Other()
	}
	return move, next, nil
}

// Reset clears the practice board and hands the first move to slot 1.
func (p Practice) Reset() Practice {
	return Practice{Current: Player1}
}
