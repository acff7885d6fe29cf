package room

import (
	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

// gameState builds the narrow client view. Identities and connection ids stay
// on the server.
func (r *Room) gameState() *types.GameState {
	s := r.session
	return &types.GameState{
		Board:         s.Game.Board.Ints(),
		CurrentPlayer: int(s.Game.Current),
		Winner:        string(s.Game.Winner),
		Started:       s.Started,
		Connected:     [2]bool{s.live(engine.Player1), s.live(engine.Player2)},
		Score:         ScoreView(s.score),
	}
}

func ScoreView(s store.Score) types.Score {
	return types.Score{Player1: s.P1Wins, Player2: s.P2Wins, Draws: s.Draws, Games: s.GamesPlayed}
}

func toMove(m engine.Move) *types.Move {
	return &types.Move{Row: m.Row, Column: m.Column, Player: int(m.Player)}
}

func practiceState(p engine.Practice) *types.PracticeState {
	return &types.PracticeState{
		Board:         p.Board.Ints(),
		CurrentPlayer: int(p.Current),
		Winner:        string(p.Winner),
	}
}
