package catalog

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/shopspring/decimal"
)

// schemaCUE constrains catalog seed files. Definitions are closed, so
// misspelled fields are rejected rather than ignored.
const schemaCUE = `
#Item: {
	id:          string & !=""
	name:        string & !=""
	imageUrl:    string
	description: string
	price:       number & >=0
	category?:   string
}

#Catalog: {
	items: [...#Item]
	categories: [...string & !=""]
}
`

// Seed is a decoded catalog seed file.
type Seed struct {
	Items      []Item
	Categories []string
}

// Default returns the built-in seed.
func Default() Seed {
	return Seed{Items: DefaultItems(), Categories: DefaultCategories()}
}

// LoadCUE reads a catalog seed from a CUE file. The file must define the
// top-level fields of #Catalog:
//
//	items: [{id: "1", name: "Mouse", imageUrl: "", description: "", price: 25.5}]
//	categories: ["Mouse"]
func LoadCUE(path string) (Seed, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("catalog: read seed: %w", err)
	}
	return ParseCUE(path, src)
}

// ParseCUE decodes a catalog seed from CUE source. filename is used in
// error positions only.
func ParseCUE(filename string, src []byte) (Seed, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("catalog_schema.cue"))
	if err := schema.Err(); err != nil {
		return Seed{}, fmt.Errorf("catalog: schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return Seed{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Seed{}, formatCUEError(err)
	}

	var seed Seed

	iter, err := v.LookupPath(cue.ParsePath("items")).List()
	if err != nil {
		return Seed{}, formatCUEError(err)
	}
	for iter.Next() {
		it, err := decodeItem(iter.Value())
		if err != nil {
			return Seed{}, err
		}
		seed.Items = append(seed.Items, it)
	}

	catIter, err := v.LookupPath(cue.ParsePath("categories")).List()
	if err != nil {
		return Seed{}, formatCUEError(err)
	}
	for catIter.Next() {
		label, err := catIter.Value().String()
		if err != nil {
			return Seed{}, formatCUEError(err)
		}
		seed.Categories = append(seed.Categories, label)
	}

	if err := Validate(seed.Items); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

func decodeItem(v cue.Value) (Item, error) {
	var it Item
	fields := []struct {
		name string
		dst  *string
	}{
		{"id", &it.ID},
		{"name", &it.Name},
		{"imageUrl", &it.ImageURL},
		{"description", &it.Description},
	}
	for _, f := range fields {
		s, err := v.LookupPath(cue.ParsePath(f.name)).String()
		if err != nil {
			return Item{}, formatCUEError(err)
		}
		*f.dst = s
	}

	price, err := v.LookupPath(cue.ParsePath("price")).Float64()
	if err != nil {
		return Item{}, formatCUEError(err)
	}
	it.Price = decimal.NewFromFloat(price)

	// Optional.
	cat := v.LookupPath(cue.ParsePath("category"))
	if cat.Exists() && cat.IsConcrete() {
		s, err := cat.String()
		if err != nil {
			return Item{}, formatCUEError(err)
		}
		it.Category = s
	}
	return it, nil
}

// formatCUEError reduces a CUE error list to its first entry, prefixed with
// the source position when one is known.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("catalog: %w", err)
	}
	first := errs[0]
	if pos := cueerrors.Positions(first); len(pos) > 0 {
		return fmt.Errorf("catalog: %s: %w", pos[0], first)
	}
	return fmt.Errorf("catalog: %w", first)
}
