package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultReference(t *testing.T) {
	ref, err := DefaultReference()
	require.NoError(t, err)

	assert.Len(t, ref.Restaurants, 12)
	assert.Len(t, ref.MenuItems, 60)
	assert.Equal(t, "Pasta Palace", ref.Restaurants[0].Name)
	assert.Equal(t, "Classic Spaghetti", ref.MenuItems[0].Name)
	assert.Equal(t, 12.5, ref.MenuItems[0].Price)
}

func TestDefaultReference_EveryItemResolves(t *testing.T) {
	ref, err := DefaultReference()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, r := range ref.Restaurants {
		names[r.Name] = true
	}
	for _, item := range ref.MenuItems {
		assert.True(t, names[item.Restaurant], "menu item %q references unknown restaurant %q", item.Name, item.Restaurant)
	}
}

func TestLoadReference_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "unknown field",
			yaml: `
restaurants:
  - name: A
    cuisine: B
    image: https://example.com/a.jpg
    rating: 5
`,
			wantErr: "failed to parse reference catalog",
		},
		{
			name: "non-positive price",
			yaml: `
restaurants:
  - name: A
    cuisine: B
    image: https://example.com/a.jpg
menu_items:
  - restaurant: A
    name: Soup
    description: ""
    price: 0
`,
			wantErr: "invalid reference catalog",
		},
		{
			name: "blank restaurant name",
			yaml: `
restaurants:
  - name: "  "
    cuisine: B
    image: https://example.com/a.jpg
`,
			wantErr: "invalid reference catalog",
		},
		{
			name: "image is not a url",
			yaml: `
restaurants:
  - name: A
    cuisine: B
    image: a.jpg
`,
			wantErr: "invalid reference catalog",
		},
		{
			name: "duplicate restaurant",
			yaml: `
restaurants:
  - name: A
    cuisine: B
    image: https://example.com/a.jpg
  - name: A
    cuisine: C
    image: https://example.com/b.jpg
`,
			wantErr: `duplicate restaurant "A"`,
		},
		{
			name: "duplicate menu item",
			yaml: `
restaurants:
  - name: A
    cuisine: B
    image: https://example.com/a.jpg
menu_items:
  - restaurant: A
    name: Soup
    description: ""
    price: 1
  - restaurant: A
    name: Soup
    description: other
    price: 2
`,
			wantErr: `duplicate menu item "Soup"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReference([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadReference_SameItemNameInDifferentRestaurants(t *testing.T) {
	ref, err := LoadReference([]byte(`
restaurants:
  - name: A
    cuisine: X
    image: https://example.com/a.jpg
  - name: B
    cuisine: Y
    image: https://example.com/b.jpg
menu_items:
  - restaurant: A
    name: Soup
    description: ""
    price: 4
  - restaurant: B
    name: Soup
    description: ""
    price: 5
`))
	require.NoError(t, err)
	assert.Len(t, ref.MenuItems, 2)
}

func TestLoadReference_NormalizesNames(t *testing.T) {
	// Decomposed "Cafe" + combining acute accent, with trailing space.
	ref, err := LoadReference([]byte("restaurants:\n  - name: \"Cafe\u0301 \"\n    cuisine: French\n    image: https://example.com/c.jpg\n"))
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", ref.Restaurants[0].Name)
}

func TestLoadReference_NormalizationCatchesDuplicates(t *testing.T) {
	_, err := LoadReference([]byte("restaurants:\n" +
		"  - name: \"Caf\u00e9\"\n    cuisine: French\n    image: https://example.com/c.jpg\n" +
		"  - name: \"Cafe\u0301\"\n    cuisine: French\n    image: https://example.com/d.jpg\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate restaurant")
}

func TestLoadReference_Empty(t *testing.T) {
	ref, err := LoadReference([]byte("restaurants: []\n"))
	require.NoError(t, err)
	assert.Empty(t, ref.Restaurants)
	assert.Empty(t, ref.MenuItems)
}
