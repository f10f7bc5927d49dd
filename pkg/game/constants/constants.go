package constants

import "time"

const (
	// EventTTL is how long an event log entry stays visible.
	EventTTL = 7500 * time.Millisecond

	// CardTypeCount is the number of distinct card-type tags.
	CardTypeCount = 3

	// MissionCardIndex marks a displayed card that is the player's
	// mission card rather than a hand card.
	MissionCardIndex = -1
)

// Event log codes.
const (
	EventChangeColor  = "CHANGE_COLOR"
	EventTakeCard     = "TAKE_CARD"
	EventThrowCard    = "THROW_CARD"
	EventDisplayCard  = "DISPLAY_CARD"
	EventHideCard     = "HIDE_CARD"
	EventDiscardCards = "DISCARD_CARDS"
	EventDiscardArmy  = "DISCARD_ARMY"
)

// PlayerColor is a selectable player color.
type PlayerColor struct {
	Name string
	Hex  string
}

// Colors is the palette players choose from. Hex values are what get
// stored in the game document's color slots.
var Colors = []PlayerColor{
	{Name: "Red", Hex: "#ff0000"},
	{Name: "Blue", Hex: "#0000ff"},
	{Name: "Green", Hex: "#00ff00"},
	{Name: "Yellow", Hex: "#ffff00"},
	{Name: "Black", Hex: "#000000"},
	{Name: "Purple", Hex: "#800080"},
	{Name: "Orange", Hex: "#ffa500"},
	{Name: "Cyan", Hex: "#00ffff"},
}

// Countries is the fixed board territory list.
var Countries = []string{
	"Alaska",
	"Northwest Territory",
	"Greenland",
	"Alberta",
	"Ontario",
	"Quebec",
	"Western United States",
	"Eastern United States",
	"Central America",
	"Venezuela",
	"Peru",
	"Brazil",
	"Argentina",
	"Iceland",
	"Scandinavia",
	"Great Britain",
	"Northern Europe",
	"Ukraine",
	"Western Europe",
	"Southern Europe",
	"North Africa",
	"Egypt",
	"East Africa",
	"Congo",
	"South Africa",
	"Madagascar",
	"Ural",
	"Siberia",
	"Yakutsk",
	"Kamchatka",
	"Irkutsk",
	"Mongolia",
	"Japan",
	"Afghanistan",
	"China",
	"Middle East",
	"India",
	"Siam",
	"Indonesia",
	"New Guinea",
	"Western Australia",
	"Eastern Australia",
}

// DefaultMissions seeds a new game's mission pool. The creator can edit
// the pool before the game starts.
var DefaultMissions = []string{
	"Conquer all of North America and Africa",
	"Conquer all of Asia and South America",
	"Conquer all of Europe and Australia plus one more continent",
	"Conquer 24 territories",
	"Conquer 18 territories and occupy each with at least two armies",
	"Eliminate the red player, or conquer 24 territories",
	"Eliminate the blue player, or conquer 24 territories",
	"Eliminate the green player, or conquer 24 territories",
	"Eliminate the yellow player, or conquer 24 territories",
	"Eliminate the black player, or conquer 24 territories",
}
