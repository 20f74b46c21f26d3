package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	Format string
	Locale string
}

var validFormats = []string{"text", "json"}

func newRootCommand(sources sourceFactory) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "menuctl",
		Short:        "Inspect the menubot catalog",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Locale, "locale", "", "catalog display language; defaults to MENUBOT_CATALOG_LOCALE")

	cmd.AddCommand(newCatalogCommand(opts, sources))
	cmd.AddCommand(newTokenCommand(opts))
	return cmd
}
