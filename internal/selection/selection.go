// Package selection turns customer choices into a validated customization of
// one product: a variant, a multiset of option items and a set of excluded
// ingredients.
package selection

import (
	"fmt"
	"strings"

	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/pricing"
)

// Selection is the customization of one product instance. Options is a flat
// multiset; each item carries the id of the group it was chosen from.
type Selection struct {
	Variant  *menu.Variant     `json:"variant"`
	Options  []menu.OptionItem `json:"options"`
	Excluded []string          `json:"removedIngredients"`
}

// New returns a fresh selection with the default variant pre-selected.
func New(p menu.Product) Selection {
	return Selection{Variant: DefaultVariant(p)}
}

// DefaultVariant returns the cheapest variant, the first one on ties, or nil
// when the product has no variants.
func DefaultVariant(p menu.Product) *menu.Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	best := p.Variants[0]
	for _, v := range p.Variants[1:] {
		if v.Price < best.Price {
			best = v
		}
	}
	return &best
}

// SelectVariant replaces the chosen variant.
func (s *Selection) SelectVariant(p menu.Product, variantID string) error {
	v, ok := p.Variant(variantID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariant, variantID)
	}
	s.Variant = &v
	return nil
}

// ChooseOption adds one occurrence of an item. Single-choice groups replace
// their current choice. Multi-choice groups append until the group maximum
// is reached, after which a *LimitError is returned and nothing changes.
func (s *Selection) ChooseOption(g menu.OptionGroup, itemID string) error {
	item, ok := g.Item(itemID)
	if !ok {
		return fmt.Errorf("%w: %s in group %s", ErrUnknownOption, itemID, g.ID)
	}
	if !item.Available() {
		return fmt.Errorf("%w: %s", ErrOptionUnavailable, item.Name)
	}
	item.GroupID = g.ID

	switch g.Mode() {
	case menu.ModeSingle:
		s.dropGroup(g.ID)
		s.Options = append(s.Options, item)
	case menu.ModeMulti:
		if s.CountInGroup(g.ID) >= g.Max {
			return &LimitError{GroupID: g.ID, Group: g.Name, Max: g.Max}
		}
		s.Options = append(s.Options, item)
	}
	return nil
}

// RemoveOption drops exactly one occurrence of the item from the group and
// reports whether anything was removed.
func (s *Selection) RemoveOption(g menu.OptionGroup, itemID string) bool {
	for i := len(s.Options) - 1; i >= 0; i-- {
		opt := s.Options[i]
		if opt.GroupID == g.ID && (opt.ID == itemID || opt.Key() == itemID) {
			s.Options = append(s.Options[:i:i], s.Options[i+1:]...)
			return true
		}
	}
	return false
}

// ExcludeIngredient adds name to the exclusion set.
func (s *Selection) ExcludeIngredient(name string) {
	name = strings.TrimSpace(name)
	if name == "" || s.Excludes(name) {
		return
	}
	s.Excluded = append(s.Excluded, name)
}

// IncludeIngredient removes name from the exclusion set.
func (s *Selection) IncludeIngredient(name string) {
	name = strings.TrimSpace(name)
	for i, n := range s.Excluded {
		if n == name {
			s.Excluded = append(s.Excluded[:i:i], s.Excluded[i+1:]...)
			return
		}
	}
}

// Excludes reports whether name is excluded.
func (s Selection) Excludes(name string) bool {
	for _, n := range s.Excluded {
		if n == name {
			return true
		}
	}
	return false
}

// CountInGroup counts chosen occurrences belonging to the group.
func (s Selection) CountInGroup(groupID string) int {
	n := 0
	for _, opt := range s.Options {
		if opt.GroupID == groupID {
			n++
		}
	}
	return n
}

// UnitPrice prices one unit of the product with this customization.
// Exclusions are free.
func (s Selection) UnitPrice(p menu.Product) pricing.Money {
	var variant *pricing.Money
	if s.Variant != nil {
		price := s.Variant.Price
		variant = &price
	}
	prices := make([]pricing.Money, 0, len(s.Options))
	for _, opt := range s.Options {
		prices = append(prices, opt.Price)
	}
	return pricing.UnitPrice(p.Price, variant, prices...)
}

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := Selection{
		Options:  append([]menu.OptionItem(nil), s.Options...),
		Excluded: append([]string(nil), s.Excluded...),
	}
	if s.Variant != nil {
		v := *s.Variant
		out.Variant = &v
	}
	return out
}

func (s *Selection) dropGroup(groupID string) {
	kept := s.Options[:0:0]
	for _, opt := range s.Options {
		if opt.GroupID != groupID {
			kept = append(kept, opt)
		}
	}
	s.Options = kept
}
