// Package memstore keeps rooms in process memory. It backs STORE_DRIVER=memory
// and the tests of packages that persist through store.Store.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/DoyleJ11/connect4-backend/internal/store"
)

var ErrInjected = errors.New("memstore: injected failure")

type room struct {
	createdAt    time.Time
	lastActivity time.Time
	snapshot     *store.Snapshot
	history      []store.MatchRecord
	score        store.Score
}

type Store struct {
	mu    sync.Mutex
	rooms map[string]*room
	now   func() time.Time
	fail  map[string]error
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		rooms: make(map[string]*room),
		now:   time.Now,
		fail:  make(map[string]error),
	}
}

// FailOn makes every later call of the named method return err. A nil err
// clears the failure.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, method)
		return
	}
	s.fail[method] = err
}

// LastActivity is exposed for tests.
func (s *Store) LastActivity(roomID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return time.Time{}, false
	}
	return r.lastActivity, true
}

func (s *Store) check(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail[method]
}

func (s *Store) get(roomID string) (*room, error) {
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) CreateRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "CreateRoom"); err != nil {
		return err
	}
	if _, ok := s.rooms[roomID]; ok {
		return errors.New("memstore: room already exists")
	}
	now := s.now()
	s.rooms[roomID] = &room{createdAt: now, lastActivity: now, score: store.DefaultScore()}
	return nil
}

func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "RoomExists"); err != nil {
		return false, err
	}
	_, ok := s.rooms[roomID]
	return ok, nil
}

func (s *Store) TouchActivity(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "TouchActivity"); err != nil {
		return err
	}
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.lastActivity = s.now()
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, roomID string, snap store.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "SaveSnapshot"); err != nil {
		return err
	}
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	snap.Board = copyBoard(snap.Board)
	snap.Players = append([]string(nil), snap.Players...)
	snap.UpdatedAt = s.now()
	r.snapshot = &snap
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context, roomID string) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "LoadSnapshot"); err != nil {
		return store.Snapshot{}, err
	}
	r, err := s.get(roomID)
	if err != nil {
		return store.Snapshot{}, err
	}
	if r.snapshot == nil {
		return store.Snapshot{}, store.ErrNotFound
	}
	snap := *r.snapshot
	snap.Board = copyBoard(snap.Board)
	snap.Players = append([]string(nil), snap.Players...)
	return snap, nil
}

func (s *Store) RecordMatchResult(ctx context.Context, roomID string, winner store.Outcome, moves int, board [][]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "RecordMatchResult"); err != nil {
		return err
	}
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.history = append(r.history, store.MatchRecord{
		Winner:   winner,
		Moves:    moves,
		Board:    copyBoard(board),
		PlayedAt: s.now(),
	})
	return nil
}

func (s *Store) ListMatchHistory(ctx context.Context, roomID string) ([]store.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "ListMatchHistory"); err != nil {
		return nil, err
	}
	r, err := s.get(roomID)
	if err != nil {
		return nil, err
	}
	out := make([]store.MatchRecord, len(r.history))
	copy(out, r.history)
	// Stable sort keeps insertion order for equal timestamps, so reverse first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	return out, nil
}

func (s *Store) IncrementScore(ctx context.Context, roomID string, winner store.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "IncrementScore"); err != nil {
		return err
	}
	r, err := s.get(roomID)
	if err != nil {
		return err
	}
	r.score = r.score.Apply(winner)
	return nil
}

func (s *Store) ReadScore(ctx context.Context, roomID string) (store.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "ReadScore"); err != nil {
		return store.Score{}, err
	}
	r, err := s.get(roomID)
	if err != nil {
		return store.Score{}, err
	}
	return r.score, nil
}

func (s *Store) ToggleStartingSlot(ctx context.Context, roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "ToggleStartingSlot"); err != nil {
		return 0, err
	}
	r, err := s.get(roomID)
	if err != nil {
		return 0, err
	}
	r.score.NextStartingSlot = store.ToggledSlot(r.score.NextStartingSlot)
	return r.score.NextStartingSlot, nil
}

func (s *Store) Close() error { return nil }

func copyBoard(b [][]int) [][]int {
	if b == nil {
		return nil
	}
	out := make([][]int, len(b))
	for i := range b {
		out[i] = append([]int(nil), b[i]...)
	}
	return out
}
