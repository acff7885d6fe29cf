package postgres

import "time"

type Room struct {
	RoomID       string `gorm:"primaryKey"`
	CreatedAt    time.Time
	LastActivity time.Time
}

type GameState struct {
	RoomID        string `gorm:"primaryKey"`
	Board         string `gorm:"type:jsonb;not null"`
	CurrentPlayer int    `gorm:"not null"`
	Players       string `gorm:"type:jsonb;not null"`
	Winner        string `gorm:"not null;default:''"`
	UpdatedAt     time.Time
}

type MatchHistory struct {
	ID         uint      `gorm:"primaryKey"`
	RoomID     string    `gorm:"index:idx_history_room_played,priority:1;not null"`
	Winner     string    `gorm:"not null"`
	Moves      int       `gorm:"not null"`
	BoardState string    `gorm:"type:jsonb"`
	PlayedAt   time.Time `gorm:"index:idx_history_room_played,priority:2,sort:desc;not null"`
}

type Score struct {
	RoomID           string `gorm:"primaryKey"`
	P1Wins           int    `gorm:"not null;default:0"`
	P2Wins           int    `gorm:"not null;default:0"`
	Draws            int    `gorm:"not null;default:0"`
	GamesPlayed      int    `gorm:"not null;default:0"`
	NextStartingSlot int    `gorm:"not null;default:1"`
}

func models() []any {
	return []any{&Room{}, &GameState{}, &MatchHistory{}, &Score{}}
}
