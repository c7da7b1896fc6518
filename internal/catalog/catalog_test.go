package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAll_AllFirstThenSorted(t *testing.T) {
	got := WithAll(DefaultCategories())

	assert.Equal(t, []string{
		"All",
		"Acessórios",
		"Caixas de Som",
		"Fone de Ouvido",
		"Joystick",
		"Mouse",
		"Pen Drive",
		"Teclado",
		"WebCam",
	}, got)
}

func TestWithAll_PermutationIndependent(t *testing.T) {
	base := DefaultCategories()
	want := WithAll(base)

	perms := [][]string{
		{base[7], base[6], base[5], base[4], base[3], base[2], base[1], base[0]},
		{base[3], base[0], base[7], base[1], base[6], base[2], base[5], base[4]},
	}
	for _, p := range perms {
		assert.Equal(t, want, WithAll(p))
	}
}

func TestWithAll_DoesNotMutateInput(t *testing.T) {
	in := []string{"b", "a"}
	_ = WithAll(in)
	assert.Equal(t, []string{"b", "a"}, in)
}

func TestWithAll_NormalisesAndSkipsAll(t *testing.T) {
	decomposed := "Acesso\u0301rios"
	got := WithAll([]string{"Mouse", decomposed, "All"})
	assert.Equal(t, []string{"All", "Acess\u00f3rios", "Mouse"}, got)
}

func TestWithAll_Empty(t *testing.T) {
	assert.Equal(t, []string{"All"}, WithAll(nil))
}

func TestFind(t *testing.T) {
	it, ok := Find(DefaultItems(), "2")
	require.True(t, ok)
	assert.Equal(t, "Earphones in-ear JBL", it.Name)

	_, ok = Find(DefaultItems(), "404")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(DefaultItems()))

	dup := append(DefaultItems(), Item{ID: "1", Name: "Other"})
	assert.ErrorIs(t, Validate(dup), ErrDuplicateItem)

	assert.Error(t, Validate([]Item{{ID: "", Name: "x"}}))
	assert.Error(t, Validate([]Item{{ID: "x"}}))
	assert.Error(t, Validate([]Item{{ID: "x", Name: "x", Price: decimal.NewFromInt(-1)}}))
}

func TestFilter(t *testing.T) {
	items := DefaultItems()

	all, err := Filter(items, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cheap, err := Filter(items, "Price < 100")
	require.NoError(t, err)
	require.Len(t, cheap, 2)
	assert.Equal(t, "2", cheap[0].ID)
	assert.Equal(t, "3", cheap[1].ID)

	byName, err := Filter(items, `Name contains "JBL"`)
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "2", byName[0].ID)

	byCat, err := Filter(items, `Category == "Pen Drive"`)
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "3", byCat[0].ID)
}

func TestFilter_InvalidExpression(t *testing.T) {
	_, err := Filter(DefaultItems(), "Price <")
	assert.Error(t, err)

	_, err = Filter(DefaultItems(), "Unknown == 1")
	assert.Error(t, err)

	// Not boolean.
	_, err = Filter(DefaultItems(), "Price + 1")
	assert.Error(t, err)
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCUE(t *testing.T) {
	path := writeSeed(t, `
items: [
	{id: "10", name: "Mouse Gamer", imageUrl: "https://example.com/m.jpg", description: "rápido", price: 25.5, category: "Mouse"},
	{id: "11", name: "Teclado", imageUrl: "", description: "", price: 100},
]
categories: ["Mouse", "Teclado"]
`)

	seed, err := LoadCUE(path)
	require.NoError(t, err)
	require.Len(t, seed.Items, 2)

	assert.Equal(t, "10", seed.Items[0].ID)
	assert.Equal(t, "Mouse", seed.Items[0].Category)
	assert.True(t, decimal.RequireFromString("25.5").Equal(seed.Items[0].Price))
	assert.Equal(t, "", seed.Items[1].Category)
	assert.True(t, decimal.NewFromInt(100).Equal(seed.Items[1].Price))
	assert.Equal(t, []string{"Mouse", "Teclado"}, seed.Categories)
}

func TestLoadCUE_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing price", `items: [{id: "1", name: "x", imageUrl: "", description: ""}]
categories: []`},
		{"negative price", `items: [{id: "1", name: "x", imageUrl: "", description: "", price: -1}]
categories: []`},
		{"unknown field", `items: [{id: "1", name: "x", imageUrl: "", description: "", price: 1, stock: 3}]
categories: []`},
		{"duplicate id", `items: [
	{id: "1", name: "x", imageUrl: "", description: "", price: 1},
	{id: "1", name: "y", imageUrl: "", description: "", price: 2},
]
categories: []`},
		{"syntax", `items: [`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCUE(writeSeed(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadCUE_MissingFile(t *testing.T) {
	_, err := LoadCUE(filepath.Join(t.TempDir(), "nope.cue"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	seed := Default()
	assert.Len(t, seed.Items, 3)
	assert.Len(t, seed.Categories, 8)
}
