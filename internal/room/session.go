package room

import (
	"github.com/DoyleJ11/connect4-backend/internal/engine"
	"github.com/DoyleJ11/connect4-backend/internal/store"
)

// Session is the authoritative state of one room. It is owned by the room
// goroutine and never shared.
type Session struct {
	RoomID  string
	Game    engine.State
	Started bool

	// identityToSlot is the primary key for players and survives reconnects.
	identityToSlot map[string]engine.Player
	// slotConn and connToIdentity index the live connections and are rebuilt
	// on every (re)join.
	slotConn       map[engine.Player]string
	connToIdentity map[string]string

	practice     *practiceSession
	rematchVotes map[string]struct{}
	score        store.Score
}

type practiceSession struct {
	owner string
	game  engine.Practice
}

func NewSession(roomID string) *Session {
	return &Session{
		RoomID:         roomID,
		Game:           engine.NewState(engine.Player1),
		identityToSlot: make(map[string]engine.Player, 2),
		slotConn:       make(map[engine.Player]string, 2),
		connToIdentity: make(map[string]string, 2),
		rematchVotes:   make(map[string]struct{}, 2),
		score:          store.DefaultScore(),
	}
}

// FromSnapshot rebuilds a session after a restart. Connections, the pending
// move, practice and rematch votes are not persisted and start empty.
func FromSnapshot(roomID string, snap store.Snapshot, score store.Score) *Session {
	s := NewSession(roomID)
	s.score = score
	s.Game.Board = engine.BoardFromInts(snap.Board)
	s.Game.Moves = s.Game.Board.Count()
	if p := engine.Player(snap.CurrentPlayer); p.Valid() {
		s.Game.Current = p
	}
	switch o := engine.Outcome(snap.Winner); o {
	case engine.OutcomePlayer1, engine.OutcomePlayer2, engine.OutcomeDraw:
		s.Game.Winner = o
	}
	for i, identity := range snap.Players {
		if identity == "" || i >= 2 {
			continue
		}
		s.identityToSlot[identity] = engine.Player(i + 1)
	}
	return s
}

// Snapshot returns the persisted form of the session.
func (s *Session) Snapshot() store.Snapshot {
	players := make([]string, 2)
	for identity, slot := range s.identityToSlot {
		players[slot-1] = identity
	}
	return store.Snapshot{
		Board:         s.Game.Board.Ints(),
		CurrentPlayer: int(s.Game.Current),
		Players:       players,
		Winner:        string(s.Game.Winner),
	}
}

func (s *Session) Score() store.Score { return s.score }

// freeSlot returns the lowest unassigned slot, or NoPlayer when both are taken.
func (s *Session) freeSlot() engine.Player {
	taken := map[engine.Player]bool{}
	for _, slot := range s.identityToSlot {
		taken[slot] = true
	}
	for _, slot := range []engine.Player{engine.Player1, engine.Player2} {
		if !taken[slot] {
			return slot
		}
	}
	return engine.NoPlayer
}

func (s *Session) slotOf(conn string) (engine.Player, bool) {
	identity, ok := s.connToIdentity[conn]
	if !ok {
		return engine.NoPlayer, false
	}
	slot, ok := s.identityToSlot[identity]
	return slot, ok
}

func (s *Session) assigned() int { return len(s.identityToSlot) }

func (s *Session) live(slot engine.Player) bool { return s.slotConn[slot] != "" }

// ready is true when both slots are owned and both owners are connected.
func (s *Session) ready() bool {
	return s.assigned() == 2 && s.live(engine.Player1) && s.live(engine.Player2)
}

// canPlay reports whether slot may act on the main board and whether the
// move would be the early opening move.
func (s *Session) canPlay(slot engine.Player) (early, ok bool) {
	if s.Started {
		return false, true
	}
	if slot == engine.Player1 && !s.live(engine.Player2) && engine.EarlyMoveAvailable(s.Game) {
		return true, true
	}
	return false, false
}

func (s *Session) practiceAllowed() bool {
	_, taken := s.slotTaken(engine.Player2)
	return !taken
}

func (s *Session) slotTaken(slot engine.Player) (string, bool) {
	for identity, owned := range s.identityToSlot {
		if owned == slot {
			return identity, true
		}
	}
	return "", false
}
