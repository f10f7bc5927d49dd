package models

// GameSummary is the lobby view of a game document.
type GameSummary struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Creator string   `json:"creator"`
	Members []string `json:"members,omitempty"`
	Started bool     `json:"started,omitempty"`
}
