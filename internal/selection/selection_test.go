package selection_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront/internal/menu"
	"github.com/noah-isme/storefront/internal/pricing"
	"github.com/noah-isme/storefront/internal/selection"
)

func burger() menu.Product {
	unavailable := false
	return menu.Product{
		ID:    "p1",
		Name:  "Burger",
		Price: pricing.Units(40),
		Variants: []menu.Variant{
			{ID: "v1", Name: "Large", Price: pricing.Units(55)},
			{ID: "v0", Name: "Small", Price: pricing.Units(35)},
			{ID: "v2", Name: "Kids", Price: pricing.Units(35)},
		},
		OptionGroups: []menu.OptionGroup{
			{ID: "g1", Name: "Extras", Min: 0, Max: 2, Items: []menu.OptionItem{
				{ID: "o1", Name: "Cheese", Price: pricing.Units(5)},
				{ID: "o2", Name: "Bacon", Price: pricing.Units(8)},
				{ID: "o3", Name: "Truffle", Price: pricing.Units(20), IsAvailable: &unavailable},
			}},
			{ID: "g2", Name: "Sauce", Min: 1, Max: 1, Items: []menu.OptionItem{
				{ID: "a", Name: "Ketchup"},
				{ID: "b", Name: "Mayo"},
			}},
		},
		Ingredients: []menu.Ingredient{{Name: "Onion"}, {Name: "Pickles"}},
	}
}

func TestDuplicateOptionPricing(t *testing.T) {
	p := burger()
	extras, _ := p.Group("g1")

	var s selection.Selection
	require.NoError(t, s.ChooseOption(extras, "o1"))
	require.NoError(t, s.ChooseOption(extras, "o1"))
	require.Equal(t, pricing.Units(50), s.UnitPrice(p))

	require.True(t, s.RemoveOption(extras, "o1"))
	require.Equal(t, pricing.Units(45), s.UnitPrice(p))
	require.True(t, s.RemoveOption(extras, "o1"))
	require.False(t, s.RemoveOption(extras, "o1"), "never below zero occurrences")
	require.Equal(t, pricing.Units(40), s.UnitPrice(p))
}

func TestMultiGroupLimit(t *testing.T) {
	p := burger()
	extras, _ := p.Group("g1")

	var s selection.Selection
	require.NoError(t, s.ChooseOption(extras, "o1"))
	require.NoError(t, s.ChooseOption(extras, "o2"))
	err := s.ChooseOption(extras, "o1")

	var limitErr *selection.LimitError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, 2, limitErr.Max)
	require.True(t, errors.Is(err, selection.ErrGroupLimit))
	require.Equal(t, 2, s.CountInGroup("g1"), "no state change on rejection")
}

func TestSingleGroupReplaces(t *testing.T) {
	p := burger()
	extras, _ := p.Group("g1")
	sauce, _ := p.Group("g2")

	var s selection.Selection
	require.NoError(t, s.ChooseOption(extras, "o1"))
	require.NoError(t, s.ChooseOption(sauce, "a"))
	require.NoError(t, s.ChooseOption(sauce, "b"))

	require.Equal(t, 1, s.CountInGroup("g2"))
	require.Equal(t, 1, s.CountInGroup("g1"), "other groups untouched")
	var chosen []string
	for _, o := range s.Options {
		if o.GroupID == "g2" {
			chosen = append(chosen, o.ID)
		}
	}
	require.Equal(t, []string{"b"}, chosen)
}

func TestChooseOptionRejectsUnknownAndUnavailable(t *testing.T) {
	p := burger()
	extras, _ := p.Group("g1")

	var s selection.Selection
	require.ErrorIs(t, s.ChooseOption(extras, "nope"), selection.ErrUnknownOption)
	require.ErrorIs(t, s.ChooseOption(extras, "o3"), selection.ErrOptionUnavailable)
	require.Empty(t, s.Options)
}

func TestValidateMinimum(t *testing.T) {
	p := burger()

	_, err := selection.Validate(p, selection.Selection{})
	var vErr *selection.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "Sauce", vErr.Group)
	require.Equal(t, 1, vErr.Required)
	require.ErrorIs(t, err, selection.ErrValidation)

	plain := menu.Product{ID: "p2", Price: pricing.Units(10)}
	s, err := selection.Validate(plain, selection.Selection{})
	require.NoError(t, err)
	require.Nil(t, s.Variant)
	require.Equal(t, pricing.Units(10), s.UnitPrice(plain))
}

func TestValidateRejectsHandBuiltOverflow(t *testing.T) {
	p := burger()
	s := selection.Selection{Options: []menu.OptionItem{
		{ID: "a", GroupID: "g2"},
		{ID: "b", GroupID: "g2"},
	}}
	_, err := selection.Validate(p, s)
	var vErr *selection.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 2, vErr.Count)
	require.Equal(t, 1, vErr.Max)
}

func TestIngredientToggle(t *testing.T) {
	var s selection.Selection
	s.ExcludeIngredient("Onion")
	s.ExcludeIngredient("Onion")
	require.Equal(t, []string{"Onion"}, s.Excluded)
	s.IncludeIngredient("Onion")
	require.Empty(t, s.Excluded)
}

func TestDefaultVariantIsCheapestFirstOnTies(t *testing.T) {
	v := selection.DefaultVariant(burger())
	require.NotNil(t, v)
	require.Equal(t, "v0", v.ID)
	require.Nil(t, selection.DefaultVariant(menu.Product{}))
	require.Equal(t, "v0", selection.New(burger()).Variant.ID)
}

func TestBuildEndToEndExample(t *testing.T) {
	p := menu.Product{
		ID:       "p1",
		Price:    pricing.Units(40),
		Variants: []menu.Variant{{ID: "v1", Name: "Large", Price: pricing.Units(55)}},
		OptionGroups: []menu.OptionGroup{{ID: "g1", Min: 0, Max: 2, Items: []menu.OptionItem{
			{ID: "o1", Name: "Cheese", Price: pricing.Units(5)},
		}}},
		Ingredients: []menu.Ingredient{{Name: "Onion"}},
	}
	s, err := selection.Build(p, "v1", []selection.Choice{{GroupID: "g1", ItemID: "o1"}, {GroupID: "g1", ItemID: "o1"}}, []string{"Onion"})
	require.NoError(t, err)
	_, err = selection.Validate(p, s)
	require.NoError(t, err)
	require.Equal(t, pricing.Units(65), s.UnitPrice(p))
	require.Equal(t, []string{"Onion"}, s.Excluded)

	fresh, err := selection.Build(p, "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "v1", fresh.Variant.ID, "the default variant is pre-selected")
	require.Equal(t, pricing.Units(55), fresh.UnitPrice(p))

	_, err = selection.Build(p, "v9", nil, nil)
	require.ErrorIs(t, err, selection.ErrUnknownVariant)
	_, err = selection.Build(p, "", nil, []string{"Garlic"})
	require.ErrorIs(t, err, selection.ErrUnknownIngredient)
	_, err = selection.Build(p, "", []selection.Choice{{GroupID: "g1", ItemID: "o1"}, {GroupID: "g1", ItemID: "o1"}, {GroupID: "g1", ItemID: "o1"}}, nil)
	require.ErrorIs(t, err, selection.ErrGroupLimit)
}

func TestCloneIsDeep(t *testing.T) {
	p := burger()
	extras, _ := p.Group("g1")
	var s selection.Selection
	require.NoError(t, s.SelectVariant(p, "v1"))
	require.NoError(t, s.ChooseOption(extras, "o1"))

	c := s.Clone()
	c.Variant.Price = 0
	c.Options[0].Price = 0
	require.Equal(t, pricing.Units(55), s.Variant.Price)
	require.Equal(t, pricing.Units(5), s.Options[0].Price)
}
