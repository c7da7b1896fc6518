package catalog

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// itemEnv is the environment a filter expression is evaluated against.
type itemEnv struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
}

func envOf(it Item) itemEnv {
	return itemEnv{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Category:    it.Category,
		Price:       it.Price.InexactFloat64(),
	}
}

// Filter returns the items for which the boolean expression where holds,
// preserving catalog order. An empty expression matches everything.
//
//	catalog.Filter(items, `Price < 100 && Category == "Pen Drive"`)
func Filter(items []Item, where string) ([]Item, error) {
	if where == "" {
		out := make([]Item, len(items))
		copy(out, items)
		return out, nil
	}

	program, err := compileFilter(where)
	if err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(items))
	for _, it := range items {
		res, err := expr.Run(program, envOf(it))
		if err != nil {
			return nil, fmt.Errorf("catalog: filter item %q: %w", it.ID, err)
		}
		if match, _ := res.(bool); match {
			out = append(out, it)
		}
	}
	return out, nil
}

func compileFilter(where string) (*vm.Program, error) {
	program, err := expr.Compile(where, expr.Env(itemEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("catalog: compile filter: %w", err)
	}
	return program, nil
}
