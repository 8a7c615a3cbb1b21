package guidedto

import "time"

type MatchMove struct {
	Number   int      `json:"number"`
	Notation string   `json:"notation"`
	Comment  string   `json:"comment,omitempty"`
	SAN      []string `json:"san"`
	UCI      []string `json:"uci"`
}

type Match struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Result    string      `json:"result,omitempty"`
	Moves     []MatchMove `json:"moves"`
}

type ArchivedMatch struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Source     string    `json:"source"`
	Title      string    `json:"title,omitempty"`
	Result     string    `json:"result,omitempty"`
	MovesSAN   []string  `json:"moves_san"`
	MovesUCI   []string  `json:"moves_uci"`
	PGN        string    `json:"pgn"`
	CreatedAt  time.Time `json:"created_at"`
	ArchivedAt time.Time `json:"archived_at"`
}
