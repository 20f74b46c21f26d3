package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/menubot/internal/catalog"
	"github.com/angelmondragon/menubot/internal/conversation"
)

type decodedToken struct {
	Kind        string `json:"kind"`
	Category    *int   `json:"category,omitempty"`
	Subcategory *int   `json:"subcategory,omitempty"`
	Product     *int   `json:"product,omitempty"`
	Layout      string `json:"layout,omitempty"`
	OrderID     int64  `json:"order_id,omitempty"`
	Status      string `json:"status,omitempty"`
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <callback-data>",
		Short: "Decode a callback token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := conversation.ParseToken(args[0])
			if err != nil {
				return fmt.Errorf("invalid token %q: %w", args[0], err)
			}
			decoded := decode(token)

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(decoded)
			}
			fmt.Fprintf(out, "kind: %s\n", decoded.Kind)
			printIndex := func(label string, v *int) {
				if v != nil {
					fmt.Fprintf(out, "%s: %d\n", label, *v)
				}
			}
			printIndex("category", decoded.Category)
			printIndex("subcategory", decoded.Subcategory)
			printIndex("product", decoded.Product)
			if decoded.Layout != "" {
				fmt.Fprintf(out, "layout: %s\n", decoded.Layout)
			}
			if decoded.OrderID != 0 {
				fmt.Fprintf(out, "order: %d\n", decoded.OrderID)
			}
			if decoded.Status != "" {
				fmt.Fprintf(out, "status: %s\n", decoded.Status)
			}
			return nil
		},
	}
}

func decode(token conversation.Token) decodedToken {
	out := decodedToken{
		Kind:    string(token.Kind),
		Layout:  token.Layout,
		OrderID: token.OrderID,
		Status:  string(token.Status),
	}
	switch token.Kind {
	case conversation.TokenCategory:
		out.Category = &token.Category
	case conversation.TokenSubcategory:
		out.Category, out.Subcategory = &token.Category, &token.Subcategory
	case conversation.TokenProduct:
		out.Category, out.Product = &token.Category, &token.Product
		if token.Subcategory != catalog.NoSubcategory {
			out.Subcategory = &token.Subcategory
		}
	}
	return out
}
