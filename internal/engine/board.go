package engine

const (
	Rows      = 6
	Cols      = 7
	WinLength = 4
)

// Player is a board cell value and a turn holder. NoPlayer marks an empty cell.
type Player int

const (
	NoPlayer Player = 0
	Player1  Player = 1
	Player2  Player = 2
)

func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Other returns the opponent slot.
func (p Player) Other() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Board is indexed [row][column]; row 0 is the top row.
type Board [Rows][Cols]Player

// axes lists the four line directions; each is walked both ways from the placed piece.
var axes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal
	{1, -1}, // anti-diagonal
}

func inBounds(row, column int) bool {
	return row >= 0 && row < Rows && column >= 0 && column < Cols
}

// DropRow returns the lowest empty row in column, scanning from the bottom.
// ok is false when the column is full or out of range.
func DropRow(b Board, column int) (row int, ok bool) {
	if column < 0 || column >= Cols {
		return -1, false
	}
	for r := Rows - 1; r >= 0; r-- {
		if b[r][column] == NoPlayer {
			return r, true
		}
	}
	return -1, false
}

// CheckWin reports whether the piece at (row, column) completes a line of at
// least WinLength pieces for player along any axis.
func CheckWin(b Board, row, column int, player Player) bool {
	if !inBounds(row, column) || !player.Valid() || b[row][column] != player {
		return false
	}
	for _, axis := range axes {
		count := 1
		for _, sign := range [2]int{1, -1} {
			r, c := row+sign*axis[0], column+sign*axis[1]
			for inBounds(r, c) && b[r][c] == player {
				count++
				r += sign * axis[0]
				c += sign * axis[1]
			}
		}
		if count >= WinLength {
			return true
		}
	}
	return false
}

// IsFull is true when the top row has no empty cell. Gravity makes this
// equivalent to every cell being occupied.
func IsFull(b Board) bool {
	for c := 0; c < Cols; c++ {
		if b[0][c] == NoPlayer {
			return false
		}
	}
	return true
}

// Count returns the number of occupied cells.
func (b Board) Count() int {
	n := 0
	for r := range b {
		for c := range b[r] {
			if b[r][c] != NoPlayer {
				n++
			}
		}
	}
	return n
}

// Ints flattens the board to plain ints for storage and wire payloads.
func (b Board) Ints() [][]int {
	out := make([][]int, Rows)
	for r := range b {
		out[r] = make([]int, Cols)
		for c := range b[r] {
			out[r][c] = int(b[r][c])
		}
	}
	return out
}

// BoardFromInts is the inverse of Ints. Cells outside {0,1,2} and missing
// rows or columns are treated as empty.
func BoardFromInts(cells [][]int) Board {
	var b Board
	for r := 0; r < Rows && r < len(cells); r++ {
		for c := 0; c < Cols && c < len(cells[r]); c++ {
			if p := Player(cells[r][c]); p.Valid() {
				b[r][c] = p
			}
		}
	}
	return b
}
