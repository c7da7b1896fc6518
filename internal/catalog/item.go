package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrDuplicateItem is returned when two catalog items share an ID.
var ErrDuplicateItem = errors.New("catalog: duplicate item id")

// Item is a sellable product.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"imageUrl"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category,omitempty"`
}

// Find returns the item with the given id.
func Find(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Validate checks that every item has an id and a name, that prices are not
// negative and that ids are unique.
func Validate(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if it.ID == "" {
			return fmt.Errorf("catalog: item %d: id is required", i)
		}
		if it.Name == "" {
			return fmt.Errorf("catalog: item %q: name is required", it.ID)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("catalog: item %q: negative price %s", it.ID, it.Price)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
