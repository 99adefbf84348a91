package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/specialist"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate operation catalogues",
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a catalogue file, or the built-in one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args)
			if err != nil {
				return err
			}
			// every specialist must find its domain
			if _, err := specialist.Build(cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ catalog ok: %d domains, %d operations\n", len(cat.Domains()), cat.OperationCount())
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "List domains and their operations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(args)
			if err != nil {
				return err
			}
			printCatalog(cmd.OutOrStdout(), cat)
			return nil
		},
	}

	cmd.AddCommand(validateCmd, showCmd)
	return cmd
}

func loadCatalog(args []string) (*catalog.Catalog, error) {
	if len(args) == 0 {
		return catalog.Default()
	}
	return catalog.Load(args[0])
}

func printCatalog(w io.Writer, cat *catalog.Catalog) {
	for _, d := range cat.Domains() {
		fmt.Fprintf(w, "%s - %s\n", d.Name, d.Description)
		for _, op := range d.Operations {
			fmt.Fprintf(w, "  %-22s %-6s %s\n", op.ID, op.Method, op.Endpoint)
			if len(op.RequiredFields) > 0 {
				fmt.Fprintf(w, "      required: %s\n", strings.Join(op.RequiredFields, ", "))
			}
			if len(op.DependentFields) > 0 {
				fields := make([]string, 0, len(op.DependentFields))
				for field, dep := range op.DependentFields {
					fields = append(fields, field+" <- "+dep)
				}
				sort.Strings(fields)
				fmt.Fprintf(w, "      lookups:  %s\n", strings.Join(fields, ", "))
			}
		}
	}
}
