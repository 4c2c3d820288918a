package menu

import (
	"context"
	"fmt"
	"net/url"

	"github.com/noah-isme/storefront/internal/backend"
	"github.com/noah-isme/storefront/internal/pricing"
)

const categorySelect = `id,name,rank,image_url,` +
	`products(id,name,description,price,image_url,category_id,is_available,` +
	`variations(id,name,price),` +
	`product_option_links(group:option_groups(id,name,min_selection,max_selection,items:option_items(id,name,price,is_available))),` +
	`product_ingredients(ingredient:ingredients(id,name,is_available)))`

// storeSelect embeds the brand name through the stores.brand_id relation.
const storeSelect = `*,brands(name)`

// HTTPSource reads stores and categories from the hosted backend.
type HTTPSource struct {
	Client *backend.Client
}

type storeRow struct {
	Store
	Brand *struct {
		Name string `json:"name"`
	} `json:"brands"`
}

func (r storeRow) store() Store {
	st := r.Store
	if r.Brand != nil {
		st.BrandName = r.Brand.Name
	}
	return st
}

// Stores fetches the active stores with their brand name.
func (s HTTPSource) Stores(ctx context.Context) ([]Store, error) {
	var rows []storeRow
	query := url.Values{"select": {storeSelect}, "is_active": {backend.Eq("true")}, "order": {"name.asc"}}
	if err := s.Client.Get(ctx, "/rest/v1/stores", query, &rows); err != nil {
		return nil, fmt.Errorf("menu: fetch stores: %w", err)
	}
	out := make([]Store, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.store())
	}
	return out, nil
}

// Store fetches a single store row.
func (s HTTPSource) Store(ctx context.Context, storeID string) (Store, error) {
	var rows []storeRow
	query := url.Values{"id": {backend.Eq(storeID)}, "select": {storeSelect}, "limit": {"1"}}
	if err := s.Client.Get(ctx, "/rest/v1/stores", query, &rows); err != nil {
		return Store{}, fmt.Errorf("menu: fetch store: %w", err)
	}
	if len(rows) == 0 {
		return Store{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
	}
	return rows[0].store(), nil
}

// Categories fetches the brand's categories with nested products.
func (s HTTPSource) Categories(ctx context.Context, store Store) ([]Category, error) {
	query := url.Values{"select": {categorySelect}, "order": {"rank.asc"}}
	if store.BrandID != "" {
		query.Set("brand_id", backend.Eq(store.BrandID))
	}
	var rows []categoryRow
	if err := s.Client.Get(ctx, "/rest/v1/categories", query, &rows); err != nil {
		return nil, fmt.Errorf("menu: fetch categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.category())
	}
	return out, nil
}

type categoryRow struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Rank     int          `json:"rank"`
	ImageURL string       `json:"image_url"`
	Products []productRow `json:"products"`
}

type productRow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       pricing.Money `json:"price"`
	ImageURL    string        `json:"image_url"`
	CategoryID  string        `json:"category_id"`
	IsAvailable *bool         `json:"is_available"`
	Variations  []Variant     `json:"variations"`
	OptionLinks []struct {
		Group *groupRow `json:"group"`
	} `json:"product_option_links"`
	IngredientLinks []struct {
		Ingredient *Ingredient `json:"ingredient"`
	} `json:"product_ingredients"`
}

type groupRow struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	MinSelection int          `json:"min_selection"`
	MaxSelection int          `json:"max_selection"`
	Items        []OptionItem `json:"items"`
}

func (r categoryRow) category() Category {
	c := Category{ID: r.ID, Name: r.Name, Rank: r.Rank, ImageURL: r.ImageURL}
	c.Products = make([]Product, 0, len(r.Products))
	for _, p := range r.Products {
		c.Products = append(c.Products, p.product(r.ID))
	}
	return c
}

func (r productRow) product(categoryID string) Product {
	p := Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
		IsAvailable: r.IsAvailable,
		Variants:    r.Variations,
	}
	if p.CategoryID == "" {
		p.CategoryID = categoryID
	}
	for _, link := range r.OptionLinks {
		if link.Group == nil {
			continue
		}
		p.OptionGroups = append(p.OptionGroups, OptionGroup{
			ID:    link.Group.ID,
			Name:  link.Group.Name,
			Min:   link.Group.MinSelection,
			Max:   link.Group.MaxSelection,
			Items: link.Group.Items,
		})
	}
	for _, link := range r.IngredientLinks {
		if link.Ingredient != nil {
			p.Ingredients = append(p.Ingredients, *link.Ingredient)
		}
	}
	return p
}
