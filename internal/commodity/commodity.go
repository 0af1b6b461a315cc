// Package commodity is the catalogue of tradeable commodities offered by the
// trade and listing forms. The ledger itself accepts any non-empty commodity
// name; the catalogue only normalises input and supplies units and
// reference prices for display.
package commodity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Catalogue ids.
const (
	Oil        = "oil"
	Gold       = "gold"
	Silver     = "silver"
	Copper     = "copper"
	Wheat      = "wheat"
	Corn       = "corn"
	Coffee     = "coffee"
	NaturalGas = "natural_gas"
)

var ErrUnknown = errors.New("commodity: unknown commodity")

// Commodity is one catalogue entry. ReferencePrice is an indicative price
// per Unit used to prefill forms, not a market quote.
type Commodity struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

var catalogue = []Commodity{
	{ID: Oil, Name: "Crude Oil", Unit: "barrel", ReferencePrice: decimal.NewFromInt(70)},
	{ID: Gold, Name: "Gold", Unit: "ounce", ReferencePrice: decimal.NewFromInt(1800)},
	{ID: Silver, Name: "Silver", Unit: "ounce", ReferencePrice: decimal.NewFromInt(25)},
	{ID: Copper, Name: "Copper", Unit: "ton", ReferencePrice: decimal.NewFromInt(6000)},
	{ID: Wheat, Name: "Wheat", Unit: "bushel", ReferencePrice: decimal.RequireFromString("6.50")},
	{ID: Corn, Name: "Corn", Unit: "bushel", ReferencePrice: decimal.RequireFromString("4.75")},
	{ID: Coffee, Name: "Coffee", Unit: "pound", ReferencePrice: decimal.RequireFromString("1.90")},
	{ID: NaturalGas, Name: "Natural Gas", Unit: "MMBtu", ReferencePrice: decimal.RequireFromString("2.80")},
}

// index maps lower-cased ids and names to catalogue positions.
var index = func() map[string]int {
	m := make(map[string]int, 2*len(catalogue))
	for i, c := range catalogue {
		m[c.ID] = i
		m[strings.ToLower(c.Name)] = i
	}
	return m
}()

// All returns the catalogue in display order.
func All() []Commodity {
	return append([]Commodity(nil), catalogue...)
}

// Lookup finds a commodity by id or display name, ignoring case and
// surrounding space.
func Lookup(idOrName string) (Commodity, error) {
	key := strings.ToLower(strings.TrimSpace(idOrName))
	i, ok := index[key]
	if !ok {
		return Commodity{}, fmt.Errorf("%w: %q", ErrUnknown, idOrName)
	}
	return catalogue[i], nil
}

// Normalize returns the catalogue display name for a known commodity and
// the trimmed input otherwise, so free-form names still trade.
func Normalize(name string) string {
	if c, err := Lookup(name); err == nil {
		return c.Name
	}
	return strings.TrimSpace(name)
}
