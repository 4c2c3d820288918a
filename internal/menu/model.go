package menu

import (
	"github.com/noah-isme/storefront/internal/pricing"
)

// Variant is a mutually exclusive size or tier of a product. Its price
// replaces the product base price.
type Variant struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Price pricing.Money `json:"price"`
}

// Ingredient is a removable component of a product.
type Ingredient struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	IsAvailable *bool  `json:"is_available,omitempty"`
}

// OptionItem is one selectable add-on. GroupID records the group the item
// was chosen from once it is part of a selection.
type OptionItem struct {
	ID          string        `json:"id,omitempty"`
	GroupID     string        `json:"group_id,omitempty"`
	Name        string        `json:"name"`
	Price       pricing.Money `json:"price"`
	IsAvailable *bool         `json:"is_available,omitempty"`
}

// Available reports whether the item can be chosen. Items without an
// explicit flag are available.
func (o OptionItem) Available() bool {
	return o.IsAvailable == nil || *o.IsAvailable
}

// Key is the stable identity of the item: its id, or its name when the
// backend did not assign one.
func (o OptionItem) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return "name:" + o.Name
}

// Mode distinguishes single-choice groups from quantity groups.
type Mode int

const (
	// ModeSingle groups behave like radio buttons: one item at a time.
	ModeSingle Mode = iota + 1
	// ModeMulti groups accept repeated items up to the group maximum.
	ModeMulti
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multiple"
	default:
		return "unknown"
	}
}

// OptionGroup is a named cluster of add-ons with selection count bounds.
type OptionGroup struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Min   int          `json:"min"`
	Max   int          `json:"max"`
	Items []OptionItem `json:"items"`
}

// Mode derives the selection behaviour from the group maximum.
func (g OptionGroup) Mode() Mode {
	if g.Max > 1 {
		return ModeMulti
	}
	return ModeSingle
}

// Item looks up an item of the group by id.
func (g OptionGroup) Item(id string) (OptionItem, bool) {
	for _, it := range g.Items {
		if it.ID == id || it.Key() == id {
			return it, true
		}
	}
	return OptionItem{}, false
}

// Product is a sellable menu entry.
type Product struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	Price        pricing.Money `json:"price"`
	ImageURL     string        `json:"image_url,omitempty"`
	CategoryID   string        `json:"category_id,omitempty"`
	IsAvailable  *bool         `json:"is_available,omitempty"`
	Variants     []Variant     `json:"variations,omitempty"`
	Ingredients  []Ingredient  `json:"ingredients,omitempty"`
	OptionGroups []OptionGroup `json:"option_groups,omitempty"`
}

// Available reports whether the product may be ordered.
func (p Product) Available() bool {
	return p.IsAvailable == nil || *p.IsAvailable
}

// Variant looks up a variant by id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Group looks up an option group by id.
func (p Product) Group(id string) (OptionGroup, bool) {
	for _, g := range p.OptionGroups {
		if g.ID == id {
			return g, true
		}
	}
	return OptionGroup{}, false
}

// Category groups products for display.
type Category struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Rank     int       `json:"rank"`
	ImageURL string    `json:"image_url,omitempty"`
	Products []Product `json:"products"`
}

// Store is the branding and operating snapshot of the restaurant.
type Store struct {
	ID             string        `json:"id"`
	BrandID        string        `json:"brand_id,omitempty"`
	BrandName      string        `json:"brand_name,omitempty"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Address        string        `json:"address,omitempty"`
	DeliveryFee    pricing.Money `json:"delivery_fees"`
	IsOpen         bool          `json:"is_open"`
	PrimaryColor   string        `json:"primary_color,omitempty"`
	SecondaryColor string        `json:"secondary_color,omitempty"`
	LogoURL        string        `json:"logo_url,omitempty"`
	IsActive       *bool         `json:"is_active,omitempty"`
}

// Active reports whether the store is listed to customers. Stores without
// an explicit flag are active.
func (s Store) Active() bool {
	return s.IsActive == nil || *s.IsActive
}

// FindProduct searches every category for the product id.
func FindProduct(categories []Category, productID string) (Product, bool) {
	for _, c := range categories {
		for _, p := range c.Products {
			if p.ID == productID {
				return p, true
			}
		}
	}
	return Product{}, false
}
