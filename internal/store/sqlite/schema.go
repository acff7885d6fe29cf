package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS game_rooms (
	room_id       TEXT PRIMARY KEY,
	created_at    INTEGER NOT NULL,
	last_activity INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_states (
	room_id        TEXT PRIMARY KEY REFERENCES game_rooms(room_id),
	board          TEXT NOT NULL,
	current_player INTEGER NOT NULL,
	players        TEXT NOT NULL,
	winner         TEXT NOT NULL DEFAULT '',
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id     TEXT NOT NULL REFERENCES game_rooms(room_id),
	winner      TEXT NOT NULL,
	moves       INTEGER NOT NULL,
	board_state TEXT,
	played_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS game_history_room_played
	ON game_history (room_id, played_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS scores (
	room_id            TEXT PRIMARY KEY REFERENCES game_rooms(room_id),
	p1_wins            INTEGER NOT NULL DEFAULT 0,
	p2_wins            INTEGER NOT NULL DEFAULT 0,
	draws              INTEGER NOT NULL DEFAULT 0,
	games_played       INTEGER NOT NULL DEFAULT 0,
	next_starting_slot INTEGER NOT NULL DEFAULT 1
);
`
