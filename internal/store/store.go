// Package store defines the durable side of a room: snapshots, scores and
// match history. The in-memory room is authoritative while it is resident;
// the store only has to be good enough to rehydrate it after a restart.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Outcome is the persisted result of a finished game.
type Outcome string

const (
	OutcomePlayer1 Outcome = "player1"
	OutcomePlayer2 Outcome = "player2"
	OutcomeDraw    Outcome = "draw"
)

func (o Outcome) Valid() bool {
	return o == OutcomePlayer1 || o == OutcomePlayer2 || o == OutcomeDraw
}

// Snapshot is the hydratable part of a room. Players holds the durable
// identities in slot order; an empty string is an unassigned slot.
type Snapshot struct {
	Board         [][]int
	CurrentPlayer int
	Players       []string
	Winner        string
	UpdatedAt     time.Time
}

type Score struct {
	P1Wins           int
	P2Wins           int
	Draws            int
	GamesPlayed      int
	NextStartingSlot int
}

// DefaultScore is the score of a room with no finished games.
func DefaultScore() Score {
	return Score{NextStartingSlot: 1}
}

type MatchRecord struct {
	Winner   Outcome
	Moves    int
	Board    [][]int
	PlayedAt time.Time
}

type Store interface {
	CreateRoom(ctx context.Context, roomID string) error
	RoomExists(ctx context.Context, roomID string) (bool, error)
	TouchActivity(ctx context.Context, roomID string) error

	SaveSnapshot(ctx context.Context, roomID string, snap Snapshot) error
	// LoadSnapshot returns ErrNotFound when the room has no snapshot.
	LoadSnapshot(ctx context.Context, roomID string) (Snapshot, error)

	RecordMatchResult(ctx context.Context, roomID string, winner Outcome, moves int, board [][]int) error
	// ListMatchHistory returns the most recent match first.
	ListMatchHistory(ctx context.Context, roomID string) ([]MatchRecord, error)

	IncrementScore(ctx context.Context, roomID string, winner Outcome) error
	ReadScore(ctx context.Context, roomID string) (Score, error)
	// ToggleStartingSlot flips the slot that opens the next game and returns it.
	ToggleStartingSlot(ctx context.Context, roomID string) (int, error)

	Close() error
}

// Apply adds one finished game to s.
func (s Score) Apply(winner Outcome) Score {
	switch winner {
	case OutcomePlayer1:
		s.P1Wins++
	case OutcomePlayer2:
		s.P2Wins++
	case OutcomeDraw:
		s.Draws++
	default:
		return s
	}
	s.GamesPlayed++
	return s
}

// ToggledSlot returns the starting slot after one toggle.
func ToggledSlot(slot int) int {
	if slot == 2 {
		return 1
	}
	return 2
}
