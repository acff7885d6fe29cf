package room

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/store"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

func (r *Room) handlePreview(connID string, slot engine.Player, column int) {
	if _, ok := r.session.canPlay(slot); !ok {
		r.send(connID, types.Event(types.EvtWaitingForOpponent))
		return
	}

	events, next, err := engine.Apply(r.session.Game, engine.Command{
		Type:   engine.CmdPreviewMove,
		Player: slot,
		Column: column,
	})
	if err != nil {
		r.reject(connID, err)
		return
	}
	r.session.Game = next
	// Previews are private to the mover.
	r.send(connID, types.ServerMessage{Type: types.EvtMovePreviewed, Move: toMove(events[0].Move)})
}

func (r *Room) handleCancel(connID string, slot engine.Player) {
	events, next, err := engine.Apply(r.session.Game, engine.Command{
		Type:   engine.CmdCancelMove,
		Player: slot,
	})
	if err != nil {
		r.reject(connID, err)
		return
	}
	r.session.Game = next
	out := types.ServerMessage{Type: types.EvtMoveCancelled}
	if withdrawn := events[0].Move; withdrawn.Player != engine.NoPlayer {
		out.Move = toMove(withdrawn)
	}
	r.send(connID, out)
}

func (r *Room) handleConfirm(connID string, slot engine.Player) {
	s := r.session
	early, ok := s.canPlay(slot)
	if !ok {
		r.send(connID, types.Event(types.EvtWaitingForOpponent))
		return
	}

	events, next, err := engine.Apply(s.Game, engine.Command{
		Type:   engine.CmdConfirmMove,
		Player: slot,
		Early:  early,
	})
	if err != nil {
		r.reject(connID, err)
		return
	}
	s.Game = next
	move := toMove(events[0].Move)

	switch {
	case early:
		r.saveSnapshot(connID)
		// The opponent is absent, so only the mover hears about it.
		r.send(connID, types.ServerMessage{Type: types.EvtMoveCommitted, State: r.gameState(), Move: move})

	case engine.ContainsEvent(events, engine.EvtGameWon), engine.ContainsEvent(events, engine.EvtGameDrawn):
		r.finishGame(connID)
		evt := types.EvtGameWon
		if s.Game.Winner == engine.OutcomeDraw {
			evt = types.EvtGameDraw
		}
		r.broadcast(types.ServerMessage{Type: evt, State: r.gameState(), Move: move})

	default:
		r.saveSnapshot(connID)
		r.broadcast(types.ServerMessage{Type: types.EvtMoveCommitted, State: r.gameState(), Move: move})
	}
}

// finishGame records the decided game. The local score is bumped first so the
// tally stays right for this process even if the store is down.
func (r *Room) finishGame(connID string) {
	s := r.session
	outcome := store.Outcome(s.Game.Winner)
	s.score = s.score.Apply(outcome)
	r.metrics.GameFinished(string(outcome))
	r.logger.Info("game finished", zap.String("outcome", string(outcome)), zap.Int("moves", s.Game.Moves))

	board := s.Game.Board.Ints()
	notify, failed := connID, false
	steps := []struct {
		op string
		fn func(ctx context.Context) error
	}{
		{"RecordMatchResult", func(ctx context.Context) error {
			return r.store.RecordMatchResult(ctx, r.id, outcome, s.Game.Moves, board)
		}},
		{"IncrementScore", func(ctx context.Context) error {
			return r.store.IncrementScore(ctx, r.id, outcome)
		}},
	}
	for _, step := range steps {
		if !r.persist(notify, step.op, step.fn) {
			notify, failed = "", true // one error frame per game is enough
		}
	}
	r.saveSnapshot(notify)
	if failed {
		return
	}

	r.persist("", "ReadScore", func(ctx context.Context) error {
		score, err := r.store.ReadScore(ctx, r.id)
		if err != nil {
			return err
		}
		s.score = score
		return nil
	})
}

// reject answers a refused move. Only turn violations are surfaced; the rest
// are no-ops for a well-behaved client and are just logged.
func (r *Room) reject(connID string, err error) {
	if errors.Is(err, engine.ErrOutOfTurn) {
		r.send(connID, types.ServerMessage{Type: types.EvtNotYourTurn, Code: types.CodeOutOfTurn})
		return
	}
	r.logger.Debug("move ignored", zap.String("conn", connID), zap.String("code", string(CodeFor(err))), zap.Error(err))
}
