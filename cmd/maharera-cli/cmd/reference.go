package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"maharera-api/internal/maharera"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	divisionsCmd.Flags().BoolVar(&referenceJson, "json", false, "Print json instead of a table.")
	districtsCmd.Flags().BoolVar(&referenceJson, "json", false, "Print json instead of a table.")
	rootCmd.AddCommand(divisionsCmd)
	rootCmd.AddCommand(districtsCmd)
}

var referenceJson bool

func printOptions(options []maharera.Option) error {
	if referenceJson {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(options)
	}

	t := newTable()
	t.AppendHeader(table.Row{"Id", "Name"})
	for _, opt := range options {
		t.AppendRow(table.Row{opt.Id, opt.Name})
	}
	t.Render()
	return nil
}

// resolveDivision turns a division id or name into its id.
func resolveDivision(ctx context.Context, query string) (int, error) {
	if id, err := strconv.Atoi(query); err == nil {
		return id, nil
	}
	divisions, err := registry.Divisions(ctx)
	if err != nil {
		return 0, err
	}
	division, ok := maharera.MatchOption(divisions, query)
	if !ok {
		return 0, fmt.Errorf("no division matches %q", query)
	}
	return division.Id, nil
}

// resolveDistrict turns a district id or name of the given division into its id.
func resolveDistrict(ctx context.Context, divisionId int, query string) (int, error) {
	if id, err := strconv.Atoi(query); err == nil {
		return id, nil
	}
	districts, err := registry.Districts(ctx, divisionId)
	if err != nil {
		return 0, err
	}
	district, ok := maharera.MatchOption(districts, query)
	if !ok {
		return 0, fmt.Errorf("no district of division %d matches %q", divisionId, query)
	}
	return district.Id, nil
}

var divisionsCmd = &cobra.Command{
	Use:   "divisions",
	Short: "Prints the divisions of Maharashtra.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		divisions, err := registry.Divisions(cmd.Context())
		if err != nil {
			return err
		}
		return printOptions(divisions)
	},
}

var districtsCmd = &cobra.Command{
	Use:   "districts <division>",
	Short: "Prints the districts of a division, given by id or by name.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		divisionId, err := resolveDivision(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		districts, err := registry.Districts(cmd.Context(), divisionId)
		if err != nil {
			return err
		}
		return printOptions(districts)
	},
}
