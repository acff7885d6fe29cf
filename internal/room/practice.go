package room

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

// handleStartPractice opens a private board for a lone player. It starts from
// the current main board and is never persisted or shown to anyone else.
func (r *Room) handleStartPractice(connID string) {
	s := r.session
	if !s.practiceAllowed() {
		r.send(connID, types.ErrorMessage(types.CodePracticeUnavailable, ErrPracticeUnavailable.Error()))
		return
	}
	s.practice = &practiceSession{
		owner: connID,
		game:  engine.NewPractice(s.Game.Board, s.Game.Current),
	}
	r.send(connID, types.ServerMessage{Type: types.EvtPracticeStarted, Practice: practiceState(s.practice.game)})
}

func (r *Room) handlePracticeMove(connID string, column int) {
	p, ok := r.ownedPractice(connID)
	if !ok {
		return
	}

	move, next, err := p.game.Drop(column)
	if err != nil {
		r.logger.Debug("practice move ignored", zap.String("conn", connID), zap.Error(err))
		return
	}
	p.game = next

	evt := types.EvtPracticeMoveMade
	switch next.Winner {
	case engine.OutcomePlayer1, engine.OutcomePlayer2:
		evt = types.EvtPracticeWon
	case engine.OutcomeDraw:
		evt = types.EvtPracticeDraw
	}
	r.send(connID, types.ServerMessage{Type: evt, Practice: practiceState(next), Move: toMove(move)})
}

func (r *Room) handleResetPractice(connID string) {
	p, ok := r.ownedPractice(connID)
	if !ok {
		return
	}
	p.game = p.game.Reset()
	r.send(connID, types.ServerMessage{Type: types.EvtPracticeReset, Practice: practiceState(p.game)})
}

func (r *Room) handleEndPractice(connID string) {
	if _, ok := r.ownedPractice(connID); !ok {
		return
	}
	r.endPractice()
}

// endPractice discards the practice board and tells its owner.
func (r *Room) endPractice() {
	p := r.session.practice
	r.session.practice = nil
	if p != nil {
		r.send(p.owner, types.Event(types.EvtPracticeEnded))
	}
}

// ownedPractice returns the practice session if connID owns it and it is
// still allowed. Once slot 2 is taken practice ends.
func (r *Room) ownedPractice(connID string) (*practiceSession, bool) {
	s := r.session
	p := s.practice
	if p == nil || p.owner != connID {
		r.send(connID, types.ErrorMessage(types.CodePracticeUnavailable, ErrPracticeUnavailable.Error()))
		return nil, false
	}
	if !s.practiceAllowed() {
		r.endPractice()
		return nil, false
	}
	return p, true
}
