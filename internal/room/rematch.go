package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

// rematchThreshold is the number of distinct players that must agree.
const rematchThreshold = 2

// handleRematchVote counts a request or an accept. Votes are keyed by
// identity, so repeating a request never double counts.
func (r *Room) handleRematchVote(connID string, quick bool) {
	s := r.session
	identity := s.connToIdentity[connID]
	slot := s.identityToSlot[identity]

	if _, dup := s.rematchVotes[identity]; dup {
		return
	}
	s.rematchVotes[identity] = struct{}{}

	if len(s.rematchVotes) >= rematchThreshold {
		r.resetGame(connID)
		return
	}
	r.sendSlot(slot.Other(), types.ServerMessage{Type: types.EvtRematchRequested, Quick: quick})
}

func (r *Room) handleRematchDecline() {
	clear(r.session.rematchVotes)
	r.broadcast(types.Event(types.EvtRematchDeclined))
}

// resetGame starts the next game on a fresh board. The opening slot
// alternates between games and the score carries over.
func (r *Room) resetGame(connID string) {
	s := r.session
	starter := store.ToggledSlot(s.score.NextStartingSlot)
	r.persist(connID, "ToggleStartingSlot", func(ctx context.Context) error {
		slot, err := r.store.ToggleStartingSlot(ctx, r.id)
		if err != nil {
			return err
		}
		starter = slot
		return nil
	})
	s.score.NextStartingSlot = starter

	s.Game = engine.NewState(engine.Player(starter))
	clear(s.rematchVotes)
	r.logger.Info("rematch", zap.Int("starter", starter))

	r.saveSnapshot(connID)
	r.broadcast(types.ServerMessage{Type: types.EvtGameReset, State: r.gameState()})
}
