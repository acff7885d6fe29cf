package types

// GameState is the client view of a room. It never carries connection ids or
// durable identities.
type GameState struct {
	Board         [][]int `json:"board"`
	CurrentPlayer int     `json:"current_player"`
	// Winner is "", "player1", "player2" or "draw".
	Winner    string  `json:"winner"`
	Started   bool    `json:"started"`
	Connected [2]bool `json:"connected"`
	Score     Score   `json:"score"`
}

type Move struct {
	Row    int `json:"row"`
	Column int `json:"column"`
	Player int `json:"player"`
}

type PracticeState struct {
	Board         [][]int `json:"board"`
	CurrentPlayer int     `json:"current_player"`
	Winner        string  `json:"winner"`
}

type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
	Draws   int `json:"draws"`
	Games   int `json:"games"`
}

type HistoryEntry struct {
	Winner   string `json:"winner"`
	PlayedAt string `json:"playedAt"`
	Moves    int    `json:"moves"`
}
