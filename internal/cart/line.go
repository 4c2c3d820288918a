package cart

import (
	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/selection"
)

// Line is one merged, priced and quantified cart entry. It copies the
// product fields it needs so later menu changes never alter it.
type Line struct {
	ID                 string            `json:"lineId"`
	ProductID          string            `json:"productId"`
	Name               string            `json:"name"`
	ImageURL           string            `json:"imageUrl,omitempty"`
	BasePrice          pricing.Money     `json:"basePrice"`
	UnitPrice          pricing.Money     `json:"unitPrice"`
	Quantity           int               `json:"quantity"`
	Variant            *menu.Variant     `json:"variant"`
	Options            []menu.OptionItem `json:"options"`
	RemovedIngredients []string          `json:"removedIngredients"`
}

func newLine(p menu.Product, sel selection.Selection, qty int) Line {
	sel = sel.Clone()
	l := Line{
		ProductID:          p.ID,
		Name:               p.Name,
		ImageURL:           p.ImageURL,
		BasePrice:          p.Price,
		UnitPrice:          sel.UnitPrice(p),
		Quantity:           qty,
		Variant:            sel.Variant,
		Options:            sel.Options,
		RemovedIngredients: sel.Excluded,
	}
	if l.Options == nil {
		l.Options = []menu.OptionItem{}
	}
	if l.RemovedIngredients == nil {
		l.RemovedIngredients = []string{}
	}
	l.ID = l.identity()
	return l
}

func (l Line) identity() string {
	return LineID(l.ProductID, l.Variant, l.Options, l.RemovedIngredients)
}

// Total is the unit price times the quantity.
func (l Line) Total() pricing.Money {
	return pricing.LineTotal(l.UnitPrice, l.Quantity)
}

func (l Line) clone() Line {
	out := l
	out.Options = append([]menu.OptionItem{}, l.Options...)
	out.RemovedIngredients = append([]string{}, l.RemovedIngredients...)
	if l.Variant != nil {
		v := *l.Variant
		out.Variant = &v
	}
	return out
}

// Items converts lines into pricing inputs.
func Items(lines []Line) []pricing.Item {
	items := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return items
}
