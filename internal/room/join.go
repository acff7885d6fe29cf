package room

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/pkg/types"
)

// handleJoin assigns or restores a slot for msg.Identity. A known identity
// always gets its old slot back, even when the room is otherwise full.
func (r *Room) handleJoin(msg Join) JoinResult {
	s := r.session
	if msg.Identity == "" {
		return JoinResult{Err: ErrIdentityRequired}
	}

	slot, returning := s.identityToSlot[msg.Identity]
	if !returning {
		slot = s.freeSlot()
		if slot == engine.NoPlayer {
			return JoinResult{Err: ErrRoomFull}
		}
		s.identityToSlot[msg.Identity] = slot
	}

	// A second connection for the same slot replaces the stale one.
	if old := s.slotConn[slot]; old != "" && old != msg.ConnID {
		r.logger.Info("replacing stale connection", zap.String("conn", old), zap.Int("slot", int(slot)))
		r.releaseConn(old, slot)
	}

	s.slotConn[slot] = msg.ConnID
	s.connToIdentity[msg.ConnID] = msg.Identity
	r.clients[msg.ConnID] = msg.Outbox
	r.metrics.Connected()
	if returning {
		r.metrics.Reconnected()
	}
	r.logger.Info("player joined",
		zap.String("conn", msg.ConnID),
		zap.Int("slot", int(slot)),
		zap.Bool("returning", returning))

	greeting := types.EvtAssignedSlot
	if returning {
		greeting = types.EvtWelcomeBack
	}
	r.send(msg.ConnID, types.ServerMessage{Type: greeting, Slot: int(slot), State: r.gameState()})
	if _, ok := r.clients[msg.ConnID]; !ok {
		// Dropped while greeting. The slot assignment still has to survive.
		if !returning {
			r.saveSnapshot("")
		}
		return JoinResult{Slot: slot, Returning: returning, Err: ErrDisconnected}
	}

	reportTo := msg.ConnID
	if !r.persist(reportTo, "TouchActivity", func(ctx context.Context) error {
		return r.store.TouchActivity(ctx, r.id)
	}) {
		reportTo = ""
	}
	r.saveSnapshot(reportTo)

	r.sendSlot(slot.Other(), types.ServerMessage{Type: types.EvtOpponentJoined, Slot: int(slot)})

	if s.ready() {
		if s.practice != nil {
			r.endPractice()
		}
		s.Started = true
		r.broadcast(types.ServerMessage{Type: types.EvtGameStart, State: r.gameState()})
	} else {
		early, _ := s.canPlay(slot)
		r.send(msg.ConnID, types.ServerMessage{Type: types.EvtWaitingForOpponent, EarlyMove: early})
	}

	return JoinResult{Slot: slot, Returning: returning}
}

// handleLeave forgets the connection but keeps its slot for the identity.
func (r *Room) handleLeave(connID string) {
	s := r.session
	slot, ok := s.slotOf(connID)
	if !ok {
		r.dropClient(connID)
		return
	}
	if s.slotConn[slot] != connID {
		// superseded by a newer connection for the same slot
		delete(s.connToIdentity, connID)
		r.dropClient(connID)
		return
	}

	r.releaseConn(connID, slot)
	r.logger.Info("player left", zap.String("conn", connID), zap.Int("slot", int(slot)))
	r.broadcast(types.ServerMessage{Type: types.EvtOpponentLeft, Slot: int(slot)})
}

// releaseConn detaches connID from slot and discards anything that only made
// sense while it was connected.
func (r *Room) releaseConn(connID string, slot engine.Player) {
	s := r.session
	delete(s.connToIdentity, connID)
	if s.slotConn[slot] == connID {
		delete(s.slotConn, slot)
	}
	if s.Game.Pending != nil && s.Game.Pending.Player == slot {
		s.Game.Pending = nil
	}
	if s.practice != nil && s.practice.owner == connID {
		s.practice = nil
	}
	r.dropClient(connID)
}
