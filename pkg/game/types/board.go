package types

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
)

// Board holds the armies standing on each territory.
type Board struct {
	ID        string    `json:"id"`
	Countries []Country `json:"countries"`
}

// Country is one territory. Armies is keyed by the color-derived army id
// so concurrent placements of the same color merge onto one entry.
type Country struct {
	Name   string          `json:"name"`
	Armies map[string]Army `json:"armies,omitempty"`
}

// Army is a stack of one color's armies on a territory. Amount is always
// positive: an army that reaches zero is removed from the map, never
// stored at zero.
type Army struct {
	Color  string `json:"color"`
	Amount int    `json:"amount"`
}

// ArmyView is an army entry flattened for consumers that want a stable
// ordering rather than a map.
type ArmyView struct {
	ID     string `json:"id"`
	Color  string `json:"color"`
	Amount int    `json:"amount"`
}

// ArmyKey derives the army map key for a color. The key is deterministic
// so two clients placing the same color always address the same entry.
func ArmyKey(color string) string {
	sum := sha1.Sum([]byte(color))
	return "a" + hex.EncodeToString(sum[:6])
}

// NewBoard creates the board document with one empty territory per name.
func NewBoard(gameID string, countryNames []string) *Board {
	countries := make([]Country, 0, len(countryNames))
	for _, name := range countryNames {
		countries = append(countries, Country{Name: name})
	}
	return &Board{ID: gameID, Countries: countries}
}

// ArmiesList flattens the armies map into a deterministic slice.
func (c *Country) ArmiesList() []ArmyView {
	keys := make([]string, 0, len(c.Armies))
	for key := range c.Armies {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]ArmyView, 0, len(keys))
	for _, key := range keys {
		army := c.Armies[key]
		list = append(list, ArmyView{ID: key, Color: army.Color, Amount: army.Amount})
	}
	return list
}

// FillBoardDefaults normalizes a board document read from the store.
func FillBoardDefaults(b *Board) *Board {
	if b == nil {
		return nil
	}
	if b.Countries == nil {
		b.Countries = []Country{}
	}
	for i := range b.Countries {
		if b.Countries[i].Armies == nil {
			b.Countries[i].Armies = map[string]Army{}
		}
	}
	return b
}
