package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/conversation"
	"github.com/angelmondragon/menubot/pkg/config"
	"github.com/angelmondragon/menubot/pkg/logger"
	"github.com/angelmondragon/menubot/pkg/money"
	"github.com/angelmondragon/menubot/pkg/sanity"
)

// sourceFactory resolves the catalog source and display settings.
type sourceFactory func() (catalog.Source, *config.ToolingConfig, error)

func defaultSourceFactory() (catalog.Source, *config.ToolingConfig, error) {
	cfg, err := config.LoadTooling()
	if err != nil {
		return nil, nil, err
	}
	client, err := sanity.NewClient(cfg.Catalog.ProjectID,
		sanity.WithDataset(cfg.Catalog.Dataset),
		sanity.WithAPIVersion(cfg.Catalog.APIVersion),
		sanity.WithToken(cfg.Catalog.Token),
	)
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewSanitySource(client, cfg.Display.MinorUnits), cfg, nil
}

func newCatalogCommand(opts *rootOptions, sources sourceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Fetch the catalog and print it with the indices buttons refer to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, cfg, err := sources()
			if err != nil {
				return err
			}
			locale := cfg.Catalog.Locale
			if opts.Locale != "" {
				locale = opts.Locale
			}

			service, err := catalog.NewService(catalog.ServiceParams{
				Source:       source,
				Logger:       logger.Nop(),
				Locale:       locale,
				FetchTimeout: cfg.Catalog.FetchTimeout,
			})
			if err != nil {
				return err
			}
			if _, err := service.Reload(cmd.Context()); err != nil {
				return err
			}

			formatter := money.NewFormatter(cfg.Display.CurrencySymbol, cfg.Display.MinorUnits)
			return renderCatalog(cmd.OutOrStdout(), service.Current().Tree(), formatter, opts.Format)
		},
	}
}

func renderCatalog(w io.Writer, tree catalog.Tree, formatter money.Formatter, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}

	products := 0
	for _, c := range tree.Categories {
		products += len(c.Products)
		for _, g := range c.Groups {
			products += len(g.Products)
		}
	}
	fmt.Fprintf(w, "generation %d, layout %s, %d categories, %d products\n", tree.Generation, tree.Layout, len(tree.Categories), products)

	for _, c := range tree.Categories {
		fmt.Fprintf(w, "\n[%d] %s (%s) %s\n", c.Index, c.Label, c.Kind, conversation.CategoryToken(c.Index, tree.Layout))
		for _, p := range c.Products {
			writeProduct(w, "    ", p, conversation.ProductToken(c.Index, catalog.NoSubcategory, p.Index, tree.Layout), formatter)
		}
		for _, g := range c.Groups {
			fmt.Fprintf(w, "  [%d] %s %s\n", g.Index, g.Label, conversation.SubcategoryToken(c.Index, g.Index, tree.Layout))
			for _, p := range g.Products {
				writeProduct(w, "      ", p, conversation.ProductToken(c.Index, g.Index, p.Index, tree.Layout), formatter)
			}
		}
	}
	return nil
}

func writeProduct(w io.Writer, indent string, p catalog.TreeProduct, token string, formatter money.Formatter) {
	fmt.Fprintf(w, "%s[%d] %s - %s (%s) %s\n", indent, p.Index, p.Name, formatter.Format(p.Price), p.Slug, token)
}
