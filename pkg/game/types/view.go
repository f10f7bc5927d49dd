package types

// View is the normalized, default-filled model the projector hands to the
// presentation layer. Consumers treat each emission as immutable.
type View struct {
	Game  GameView `json:"game"`
	Hand  Hand     `json:"hand"`
	Users []User   `json:"users"`
	// Timestamp is the local time of the emission in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// GameView is the game document joined with the board, the live event log
// and the presence flags. DisplayedCards is always present; an empty
// UserID means nobody is showing cards.
type GameView struct {
	ID               string              `json:"id"`
	Title            string              `json:"title"`
	Creator          string              `json:"creator"`
	Colors           map[string]string   `json:"colors"`
	Members          []string            `json:"members"`
	Missions         []string            `json:"missions"`
	InitialCountries map[string][]string `json:"initialCountries"`
	DisplayedCards   DisplayedCards      `json:"displayedCards"`
	Started          bool                `json:"started"`
	Countries        []CountryView       `json:"countries"`
	// Events holds the unexpired log entries, timestamps normalized to
	// the local clock.
	Events []Event `json:"events"`
	// Status maps member id to online flag.
	Status map[string]bool `json:"status"`
}

// CountryView is a territory with its armies flattened for rendering.
type CountryView struct {
	Name       string          `json:"name"`
	Armies     map[string]Army `json:"armies"`
	ArmiesList []ArmyView      `json:"armiesList"`
}
