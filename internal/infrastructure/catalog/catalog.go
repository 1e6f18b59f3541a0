// Package catalog holds the ingredient reference data a snack is composed from.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/snacksmith/backend/internal/domain"
)

//go:embed ingredients.json
var embeddedIngredients []byte

// document is the wire shape shared by the embedded file and the remote catalog endpoint
type document struct {
	Ingredients []domain.Ingredient `json:"ingredients"`
}

// Catalog is an in-memory, read-only ingredient catalog keyed by normalized name
type Catalog struct {
	byName      map[string]domain.Ingredient
	ingredients []domain.Ingredient
}

// Ensure Catalog implements domain.IngredientCatalog
var _ domain.IngredientCatalog = (*Catalog)(nil)

// New builds a catalog from ingredient records. Later duplicates replace earlier ones.
func New(ingredients []domain.Ingredient) *Catalog {
	c := &Catalog{byName: make(map[string]domain.Ingredient, len(ingredients))}
	for _, ing := range ingredients {
		key := Normalize(ing.Name)
		if key == "" {
			continue
		}
		ing.Name = key
		c.byName[key] = ing
	}

	c.ingredients = make([]domain.Ingredient, 0, len(c.byName))
	for _, ing := range c.byName {
		c.ingredients = append(c.ingredients, ing)
	}
	sort.Slice(c.ingredients, func(i, j int) bool {
		return c.ingredients[i].Name < c.ingredients[j].Name
	})
	return c
}

// NewEmbedded loads the catalog compiled into the binary
func NewEmbedded() (*Catalog, error) {
	return Parse(embeddedIngredients)
}

// Parse decodes a {"ingredients":[...]} document into a catalog
func Parse(data []byte) (*Catalog, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", domain.ErrCatalogUnavailable, err)
	}
	if len(doc.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrCatalogUnavailable)
	}
	return New(doc.Ingredients), nil
}

// Normalize canonicalizes an ingredient name for lookups
func Normalize(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Lookup resolves an ingredient by name, ignoring case and surrounding whitespace
func (c *Catalog) Lookup(name string) (domain.Ingredient, bool) {
	ing, ok := c.byName[Normalize(name)]
	return ing, ok
}

// List returns ingredients sorted by name, optionally restricted to one category
func (c *Catalog) List(category string) []domain.Ingredient {
	out := make([]domain.Ingredient, 0, len(c.ingredients))
	for _, ing := range c.ingredients {
		if category != "" && ing.Category != category {
			continue
		}
		out = append(out, ing)
	}
	return out
}

// Categories returns every category with its ingredient count, sorted by name
func (c *Catalog) Categories() []domain.CategoryCount {
	counts := make(map[string]int)
	for _, ing := range c.ingredients {
		counts[ing.Category]++
	}
	out := make([]domain.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, domain.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Names returns every ingredient name in sorted order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.ingredients))
	for i, ing := range c.ingredients {
		names[i] = ing.Name
	}
	return names
}

// Len reports how many ingredients the catalog holds
func (c *Catalog) Len() int {
	return len(c.ingredients)
}
