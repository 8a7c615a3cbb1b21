package guidedto

type Step struct {
	Number     int      `json:"number"`
	Notation   string   `json:"notation"`
	Commentary string   `json:"commentary,omitempty"`
	Plies      []string `json:"plies"`
}

type Opening struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

type Playback struct {
	SequenceID       string  `json:"sequence_id,omitempty"`
	Title            string  `json:"title,omitempty"`
	Kind             string  `json:"kind,omitempty"`
	CurrentMoveIndex int     `json:"current_move_index"`
	TotalMoves       int     `json:"total_moves"`
	IsPlaying        bool    `json:"is_playing"`
	Volume           float64 `json:"volume"`
	Narration        string  `json:"narration"`
	AtStart          bool    `json:"at_start"`
	AtEnd            bool    `json:"at_end"`
	Current          *Step   `json:"current,omitempty"`
}

type SessionState struct {
	SessionID string   `json:"session_id"`
	StudyID   string   `json:"study_id,omitempty"`
	FEN       string   `json:"fen"`
	Turn      string   `json:"turn"`
	Progress  string   `json:"progress,omitempty"`
	Opening   *Opening `json:"opening,omitempty"`
	Playback  Playback `json:"playback"`
	Match     Match    `json:"match"`
	Simulated *Match   `json:"simulated,omitempty"`
	Listeners int      `json:"listeners"`
}
