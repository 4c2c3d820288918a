package menu

import (
	"sort"
	"strings"
)

// Normalize orders categories by rank, drops unavailable products, sorts
// products by name and option items by ascending price, and fills default
// group bounds (min 0, max 1). The input is not modified.
func Normalize(categories []Category) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		cat := c
		cat.Products = make([]Product, 0, len(c.Products))
		for _, p := range c.Products {
			if !p.Available() {
				continue
			}
			cat.Products = append(cat.Products, normalizeProduct(p))
		}
		sort.SliceStable(cat.Products, func(i, j int) bool {
			return strings.ToLower(cat.Products[i].Name) < strings.ToLower(cat.Products[j].Name)
		})
		out = append(out, cat)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func normalizeProduct(p Product) Product {
	if len(p.OptionGroups) == 0 {
		return p
	}
	groups := make([]OptionGroup, 0, len(p.OptionGroups))
	for _, g := range p.OptionGroups {
		group := g
		if group.Min < 0 {
			group.Min = 0
		}
		if group.Max <= 0 {
			group.Max = 1
		}
		group.Items = append([]OptionItem(nil), g.Items...)
		sort.SliceStable(group.Items, func(i, j int) bool { return group.Items[i].Price < group.Items[j].Price })
		groups = append(groups, group)
	}
	p.OptionGroups = groups
	return p
}
