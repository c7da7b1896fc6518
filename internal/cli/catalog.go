package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/storefront/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Where string
}

// catalogListing prints as an aligned table in text mode.
type catalogListing struct {
	Items []catalog.Item `json:"items"`
}

func (l catalogListing) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE")
	for _, it := range l.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Name, it.Category, it.Price.StringFixed(2))
	}
	return tw.Flush()
}

// categoryListing prints one category per line in text mode.
type categoryListing struct {
	Categories []string `json:"categories"`
}

func (l categoryListing) RenderText(w io.Writer) error {
	for _, c := range l.Categories {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}
	return nil
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List catalog items",
		Long: `List the items of the configured catalog.

--where filters with an expression over ID, Name, Description, Category
and Price (a float).

Examples:
  storefront catalog
  storefront catalog --where 'Price < 100'
  storefront catalog --where 'Category == "Pen Drive"' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	seed, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	items := seed.Items
	if opts.Where != "" {
		items, err = catalog.Filter(items, opts.Where)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}
	if items == nil {
		items = []catalog.Item{}
	}

	out := opts.formatter(cmd)
	out.VerboseLog("%d of %d items", len(items), len(seed.Items))
	return out.Success(catalogListing{Items: items})
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List catalog categories",
		Long: `List the catalog categories as shown to shoppers: "All" first, then
the configured categories in sorted order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			seed, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Success(categoryListing{
				Categories: catalog.WithAll(seed.Categories),
			})
		},
	}
	return cmd
}
