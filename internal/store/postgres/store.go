// Package postgres provides a Postgres room store built on gorm.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/connect4-backend/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(models()...); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateRoom(ctx context.Context, roomID string) error {
	now := time.Now().UTC()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&Room{RoomID: roomID, CreatedAt: now, LastActivity: now}).Error; err != nil {
			return err
		}
		return tx.Create(&Score{RoomID: roomID, NextStartingSlot: 1}).Error
	})
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *Store) RoomExists(ctx context.Context, roomID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Room{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("room exists: %w", err)
	}
	return count > 0, nil
}

func (s *Store) TouchActivity(ctx context.Context, roomID string) error {
	res := s.db.WithContext(ctx).Model(&Room{}).
		Where("room_id = ?", roomID).
		Update("last_activity", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("touch activity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
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
	row := GameState{
		RoomID:        roomID,
		Board:         string(board),
		CurrentPlayer: snap.CurrentPlayer,
		Players:       string(players),
		Winner:        snap.Winner,
		UpdatedAt:     time.Now().UTC(),
	}
	// Last write wins; the resident room is authoritative.
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"board", "current_player", "players", "winner", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context, roomID string) (store.Snapshot, error) {
	var row GameState
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snap := store.Snapshot{
		CurrentPlayer: row.CurrentPlayer,
		Winner:        row.Winner,
		UpdatedAt:     row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.Board), &snap.Board); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode board: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Players), &snap.Players); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode players: %w", err)
	}
	return snap, nil
}

func (s *Store) RecordMatchResult(ctx context.Context, roomID string, winner store.Outcome, moves int, board [][]int) error {
	encoded, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}
	row := MatchHistory{
		RoomID:     roomID,
		Winner:     string(winner),
		Moves:      moves,
		BoardState: string(encoded),
		PlayedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record match result: %w", err)
	}
	return nil
}

func (s *Store) ListMatchHistory(ctx context.Context, roomID string) ([]store.MatchRecord, error) {
	var rows []MatchHistory
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("played_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list match history: %w", err)
	}
	history := make([]store.MatchRecord, 0, len(rows))
	for _, row := range rows {
		rec := store.MatchRecord{
			Winner:   store.Outcome(row.Winner),
			Moves:    row.Moves,
			PlayedAt: row.PlayedAt,
		}
		if row.BoardState != "" {
			if err := json.Unmarshal([]byte(row.BoardState), &rec.Board); err != nil {
				return nil, fmt.Errorf("decode history board: %w", err)
			}
		}
		history = append(history, rec)
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
	res := s.db.WithContext(ctx).Model(&Score{}).
		Where("room_id = ?", roomID).
		Updates(map[string]any{
			column:         gorm.Expr(column + " + 1"),
			"games_played": gorm.Expr("games_played + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("increment score: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ReadScore(ctx context.Context, roomID string) (store.Score, error) {
	var row Score
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Score{}, store.ErrNotFound
	}
	if err != nil {
		return store.Score{}, fmt.Errorf("read score: %w", err)
	}
	return store.Score{
		P1Wins:           row.P1Wins,
		P2Wins:           row.P2Wins,
		Draws:            row.Draws,
		GamesPlayed:      row.GamesPlayed,
		NextStartingSlot: row.NextStartingSlot,
	}, nil
}

func (s *Store) ToggleStartingSlot(ctx context.Context, roomID string) (int, error) {
	var row Score
	res := s.db.WithContext(ctx).Model(&row).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "next_starting_slot"}}}).
		Where("room_id = ?", roomID).
		Update("next_starting_slot", gorm.Expr("CASE next_starting_slot WHEN 2 THEN 1 ELSE 2 END"))
	if res.Error != nil {
		return 0, fmt.Errorf("toggle starting slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, store.ErrNotFound
	}
	return row.NextStartingSlot, nil
}
