package selection

import (
	"fmt"
	"strings"

	"github.com/noah-isme/storefront/internal/menu"
)

// Validate checks every option group of the product against the selection
// counts. It returns the selection unchanged on success and the first
// offending group as a *ValidationError otherwise. Options from groups the
// product does not offer, or a variant it does not list, are rejected too.
func Validate(p menu.Product, s Selection) (Selection, error) {
	if s.Variant != nil {
		if _, ok := p.Variant(s.Variant.ID); !ok {
			return s, fmt.Errorf("%w: %s", ErrUnknownVariant, s.Variant.ID)
		}
	}
	for _, opt := range s.Options {
		if _, ok := p.Group(opt.GroupID); !ok {
			return s, fmt.Errorf("%w: group %s", ErrUnknownOption, opt.GroupID)
		}
	}
	for _, g := range p.OptionGroups {
		count := s.CountInGroup(g.ID)
		limit := g.Max
		if limit <= 0 {
			limit = 1
		}
		if count < g.Min || count > limit {
			return s, &ValidationError{GroupID: g.ID, Group: g.Name, Required: g.Min, Max: limit, Count: count}
		}
	}
	return s, nil
}

// Choice names one option occurrence by group and item id.
type Choice struct {
	GroupID string `json:"groupId" validate:"required"`
	ItemID  string `json:"itemId" validate:"required"`
}

// Build replays a list of choices through the selector rules, in order, on a
// fresh selection. An empty variantID keeps the default variant.
func Build(p menu.Product, variantID string, choices []Choice, excluded []string) (Selection, error) {
	s := New(p)
	if variantID != "" {
		if err := s.SelectVariant(p, variantID); err != nil {
			return Selection{}, err
		}
	}
	for _, c := range choices {
		g, ok := p.Group(c.GroupID)
		if !ok {
			return Selection{}, fmt.Errorf("%w: group %s", ErrUnknownOption, c.GroupID)
		}
		if err := s.ChooseOption(g, c.ItemID); err != nil {
			return Selection{}, err
		}
	}
	for _, name := range excluded {
		name = strings.TrimSpace(name)
		if !hasIngredient(p, name) {
			return Selection{}, fmt.Errorf("%w: %s", ErrUnknownIngredient, name)
		}
		s.ExcludeIngredient(name)
	}
	return s, nil
}

func hasIngredient(p menu.Product, name string) bool {
	for _, ing := range p.Ingredients {
		if ing.Name == name {
			return true
		}
	}
	return false
}
