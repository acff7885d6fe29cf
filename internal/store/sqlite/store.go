// Package sqlite provides a SQLite-backed room store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/DoyleJ11/connect4-backend/internal/store"
)

// Store persists rooms in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ store.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies the schema. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) CreateRoom(ctx context.Context, roomID string) error {
	now := toMillis(time.Now())
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create room: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO game_rooms (room_id, created_at, last_activity) VALUES (?, ?, ?)`,
		roomID, now, now,
	); err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scores (room_id) VALUES (?)`,
		roomID,
	); err != nil {
		return fmt.Errorf("create score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create room: %w", err)
	}
	return nil
}

func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM game_rooms WHERE room_id = ?`, roomID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("room exists: %w", err)
	}
	return true, nil
}

func (s *Store) TouchActivity(ctx context.Context, roomID string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE game_rooms SET last_activity = ? WHERE room_id = ?`,
		toMillis(time.Now()), roomID,
	)
	if err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return requireRow(res)
}

func (s *Store) SaveSnapshot(ctx context.Context, roomID string, snap store.Snapshot) error {
	board, err := json.Marshal(snap.Board)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	players, err := json.Marshal(snap.Players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_states (room_id, board, current_player, players, winner, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (room_id) DO UPDATE SET
		   board = excluded.board,
		   current_player = excluded.current_player,
		   players = excluded.players,
		   winner = excluded.winner,
		   updated_at = excluded.updated_at`,
		roomID, string(board), snap.CurrentPlayer, string(players), snap.Winner, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context, roomID string) (store.Snapshot, error) {
	var (
		board, players string
		snap           store.Snapshot
		updatedAt      int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT board, current_player, players, winner, updated_at FROM game_states WHERE room_id = ?`,
		roomID,
	).Scan(&board, &snap.CurrentPlayer, &players, &snap.Winner, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(board), &snap.Board); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode board: %w", err)
	}
	if err := json.Unmarshal([]byte(players), &snap.Players); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode players: %w", err)
	}
	snap.UpdatedAt = fromMillis(updatedAt)
	return snap, nil
}

func (s *Store) RecordMatchResult(ctx context.Context, roomID string, winner store.Outcome, moves int, board [][]int) error {
	encoded, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO game_history (room_id, winner, moves, board_state, played_at) VALUES (?, ?, ?, ?, ?)`,
		roomID, string(winner), moves, string(encoded), toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("record match result: %w", err)
	}
	return nil
}

func (s *Store) ListMatchHistory(ctx context.Context, roomID string) ([]store.MatchRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT winner, moves, board_state, played_at FROM game_history
		 WHERE room_id = ? ORDER BY played_at DESC, id DESC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list match history: %w", err)
	}
	defer rows.Close()

	history := []store.MatchRecord{}
	for rows.Next() {
		var (
			rec      store.MatchRecord
			winner   string
			board    sql.NullString
			playedAt int64
		)
		if err := rows.Scan(&winner, &rec.Moves, &board, &playedAt); err != nil {
			return nil, fmt.Errorf("scan match history: %w", err)
		}
		rec.Winner = store.Outcome(winner)
		rec.PlayedAt = fromMillis(playedAt)
		if board.Valid && board.String != "" {
			if err := json.Unmarshal([]byte(board.String), &rec.Board); err != nil {
				return nil, fmt.Errorf("decode history board: %w", err)
			}
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match history: %w", err)
	}
	return history, nil
}

func (s *Store) IncrementScore(ctx context.Context, roomID string, winner store.Outcome) error {
	var column string
	switch winner {
	case store.OutcomePlayer1:
		column = "p1_wins"
	case store.OutcomePlayer2:
		column = "p2_wins"
	case store.OutcomeDraw:
		column = "draws"
	default:
		return fmt.Errorf("increment score: unknown outcome %q", winner)
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE scores SET `+column+` = `+column+` + 1, games_played = games_played + 1 WHERE room_id = ?`,
		roomID,
	)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ReadScore(ctx context.Context, roomID string) (store.Score, error) {
	var score store.Score
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT p1_wins, p2_wins, draws, games_played, next_starting_slot FROM scores WHERE room_id = ?`,
		roomID,
	).Scan(&score.P1Wins, &score.P2Wins, &score.Draws, &score.GamesPlayed, &score.NextStartingSlot)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Score{}, store.ErrNotFound
	}
	if err != nil {
		return store.Score{}, fmt.Errorf("read score: %w", err)
	}
	return score, nil
}

func (s *Store) ToggleStartingSlot(ctx context.Context, roomID string) (int, error) {
	var slot int
	err := s.sqlDB.QueryRowContext(ctx,
		`UPDATE scores SET next_starting_slot = CASE next_starting_slot WHEN 2 THEN 1 ELSE 2 END
		 WHERE room_id = ? RETURNING next_starting_slot`,
		roomID,
	).Scan(&slot)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("toggle starting slot: %w", err)
	}
	return slot, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
