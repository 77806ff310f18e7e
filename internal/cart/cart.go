// Package cart holds the line-item rules shared by guest and user carts.
// A line is identified by shoe id, selected size and selected colour.
package cart

import (
	"errors"
	"strings"
	"time"

	"stride_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidShoeID   = errors.New("invalid shoe id")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLineNotFound    = errors.New("cart line not found")
)

type Item struct {
	ShoeID   string  `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Size     float64 `json:"selectedSize,omitempty"`
	Color    string  `json:"selectedColor,omitempty"`
	Quantity int     `json:"quantity"`
}

// Key identifies the line this item belongs to.
func (i Item) Key() LineKey {
	return LineKey{ShoeID: i.ShoeID, Size: i.Size, Color: strings.ToLower(i.Color)}
}

type LineKey struct {
	ShoeID string
	Size   float64
	Color  string
}

type Cart struct {
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidID reports whether id is a 24 character hex object id.
func ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// Add inserts item or adds its quantity to the matching line.
func (c *Cart) Add(item Item) error {
	if !ValidID(item.ShoeID) {
		return ErrInvalidShoeID
	}
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}
	key := item.Key()
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity replaces the quantity of one line. Values below 1 are
// rejected and leave the cart untouched.
func (c *Cart) SetQuantity(key LineKey, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	key.Color = strings.ToLower(key.Color)
	for i := range c.Items {
		if c.Items[i].Key() == key {
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return ErrLineNotFound
}

// Line returns the line matching key.
func (c *Cart) Line(key LineKey) (Item, bool) {
	key.Color = strings.ToLower(key.Color)
	for _, it := range c.Items {
		if it.Key() == key {
			return it, true
		}
	}
	return Item{}, false
}

// RemoveLine drops one line and reports whether it existed.
func (c *Cart) RemoveLine(key LineKey) bool {
	key.Color = strings.ToLower(key.Color)
	return c.removeWhere(func(it Item) bool { return it.Key() == key }) > 0
}

// RemoveShoe drops every line of shoeID whatever its size or colour.
func (c *Cart) RemoveShoe(shoeID string) int {
	return c.removeWhere(func(it Item) bool { return it.ShoeID == shoeID })
}

func (c *Cart) removeWhere(match func(Item) bool) int {
	kept := c.Items[:0]
	removed := 0
	for _, it := range c.Items {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	c.Items = kept
	return removed
}

func (c *Cart) Clear() { c.Items = nil }

// Count is the total number of pairs in the cart.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() float64 {
	total := 0.0
	for _, it := range c.Items {
		total += it.Price * float64(it.Quantity)
	}
	return models.RoundMoney(total)
}

// Sanitize drops lines with an invalid id or a non-positive quantity.
func (c *Cart) Sanitize() int {
	return c.removeWhere(func(it Item) bool { return !ValidID(it.ShoeID) || it.Quantity < 1 })
}

// Merge folds src into dst with the same keying as Add. Lines from src that
// would be rejected by Add are skipped and counted.
func Merge(dst, src Cart) (Cart, int) {
	out := Cart{Items: append([]Item(nil), dst.Items...), UpdatedAt: dst.UpdatedAt}
	out.Sanitize()
	skipped := 0
	for _, it := range src.Items {
		if err := out.Add(it); err != nil {
			skipped++
		}
	}
	return out, skipped
}

// Summary is the shape returned to clients.
type Summary struct {
	Items    []Item  `json:"items"`
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

func (c Cart) Summary() Summary {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	return Summary{Items: items, Count: c.Count(), Subtotal: c.Subtotal()}
}
