package guidedto

type StudySummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Moves       int    `json:"moves"`
}

type StudyMove struct {
	Move       string `json:"move"`
	Notation   string `json:"notation"`
	Commentary string `json:"commentary,omitempty"`
}

type Study struct {
	StudySummary
	StartFEN string      `json:"fen"`
	Steps    []StudyMove `json:"steps"`
}
