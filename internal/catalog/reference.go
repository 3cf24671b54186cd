package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed reference.yaml
var referenceYAML []byte

//go:embed schema.cue
var schemaCUE string

// Restaurant is a row of the restaurants table.
type Restaurant struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Cuisine string `json:"cuisine"`
	Image   string `json:"image"`
}

// MenuItem is a row of the menu_items table.
type MenuItem struct {
	ID           int64   `json:"id"`
	RestaurantID int64   `json:"restaurant_id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
}

// Reference is the fixed catalog definition the store is reconciled to.
type Reference struct {
	Restaurants []ReferenceRestaurant `yaml:"restaurants" json:"restaurants"`
	MenuItems   []ReferenceMenuItem   `yaml:"menu_items" json:"menu_items"`
}

// ReferenceRestaurant is one reference restaurant.
type ReferenceRestaurant struct {
	Name    string `yaml:"name" json:"name"`
	Cuisine string `yaml:"cuisine" json:"cuisine"`
	Image   string `yaml:"image" json:"image"`
}

// ReferenceMenuItem is one reference menu item. Restaurant holds the owning
// restaurant's name; it is resolved to an id during reconciliation.
type ReferenceMenuItem struct {
	Restaurant  string  `yaml:"restaurant" json:"restaurant"`
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Price       float64 `yaml:"price" json:"price"`
}

// DefaultReference returns the embedded reference catalog.
func DefaultReference() (*Reference, error) {
	return LoadReference(referenceYAML)
}

// LoadReference decodes, normalises and validates a reference catalog.
func LoadReference(data []byte) (*Reference, error) {
	var ref Reference
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&ref); err != nil {
		return nil, fmt.Errorf("failed to parse reference catalog: %w", err)
	}

	ref.normalize()

	if err := validateSchema(&ref); err != nil {
		return nil, err
	}
	if err := ref.checkUnique(); err != nil {
		return nil, err
	}
	return &ref, nil
}

// NormalizeName returns the canonical form used for name comparisons and
// storage: NFC with surrounding whitespace removed.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func (r *Reference) normalize() {
	// nil slices encode to CUE null, which does not unify with a list.
	if r.Restaurants == nil {
		r.Restaurants = []ReferenceRestaurant{}
	}
	if r.MenuItems == nil {
		r.MenuItems = []ReferenceMenuItem{}
	}
	for i := range r.Restaurants {
		r.Restaurants[i].Name = NormalizeName(r.Restaurants[i].Name)
	}
	for i := range r.MenuItems {
		r.MenuItems[i].Restaurant = NormalizeName(r.MenuItems[i].Restaurant)
		r.MenuItems[i].Name = NormalizeName(r.MenuItems[i].Name)
	}
}

func (r *Reference) checkUnique() error {
	seen := make(map[string]bool, len(r.Restaurants))
	for _, rest := range r.Restaurants {
		if seen[rest.Name] {
			return fmt.Errorf("invalid reference catalog: duplicate restaurant %q", rest.Name)
		}
		seen[rest.Name] = true
	}

	type key struct{ restaurant, name string }
	items := make(map[key]bool, len(r.MenuItems))
	for _, item := range r.MenuItems {
		k := key{item.Restaurant, item.Name}
		if items[k] {
			return fmt.Errorf("invalid reference catalog: duplicate menu item %q for %q", item.Name, item.Restaurant)
		}
		items[k] = true
	}
	return nil
}

// validateSchema unifies the decoded catalog with #Catalog from schema.cue.
func validateSchema(ref *Reference) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	value := def.Unify(ctx.Encode(ref))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid reference catalog: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
