package cmd

import (
	"fmt"
	"os"
	"strconv"

	"maharera-api/internal/agents"
	"maharera-api/internal/present"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var agentsFlags struct {
	page        int
	pages       int
	name        string
	projectName string
	location    string
	state       string
	division    string
	district    string
	format      string
}

func init() {
	flags := agentsCmd.Flags()
	flags.IntVar(&agentsFlags.page, "page", 1, "First page to fetch.")
	flags.IntVar(&agentsFlags.pages, "pages", 1, "Number of consecutive pages to fetch.")
	flags.StringVar(&agentsFlags.name, "name", "", "Agent name filter.")
	flags.StringVar(&agentsFlags.projectName, "project", "", "Project name filter.")
	flags.StringVar(&agentsFlags.location, "location", "", "Location filter.")
	flags.StringVar(&agentsFlags.state, "state", agents.DefaultState, "State code.")
	flags.StringVar(&agentsFlags.division, "division", "", "Division id or name.")
	flags.StringVar(&agentsFlags.district, "district", "", "District id or name, requires --division.")
	flags.StringVar(&agentsFlags.format, "format", "table", "Output format: table, json or csv.")
	rootCmd.AddCommand(agentsCmd)
}

func checkFormat(format string) error {
	switch format {
	case "table", "json", "csv":
		return nil
	}
	return fmt.Errorf("unknown format %q, expected table, json or csv", format)
}

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Searches the registered agents.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		err := checkFormat(agentsFlags.format)
		if err != nil {
			return err
		}

		filters := agents.Filters{
			Name:        agentsFlags.name,
			ProjectName: agentsFlags.projectName,
			Location:    agentsFlags.location,
			State:       agentsFlags.state,
		}
		if agentsFlags.district != "" && agentsFlags.division == "" {
			return fmt.Errorf("--district requires --division")
		}
		if agentsFlags.division != "" {
			divisionId, err := resolveDivision(ctx, agentsFlags.division)
			if err != nil {
				return err
			}
			filters.Division = strconv.Itoa(divisionId)

			if agentsFlags.district != "" {
				districtId, err := resolveDistrict(ctx, divisionId, agentsFlags.district)
				if err != nil {
					return err
				}
				filters.District = strconv.Itoa(districtId)
			}
		}

		result, err := aggregator.Aggregate(ctx, filters, agentsFlags.page, agentsFlags.pages)
		if err != nil {
			return err
		}

		switch agentsFlags.format {
		case "json":
			body, err := present.MarshalJson(result)
			if err != nil {
				return err
			}
			fmt.Println(string(body))
			return nil
		case "csv":
			return present.WriteCsv(os.Stdout, result.Agents)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Sr No", "Name", "Certificate No", "Details"})
		for _, record := range result.Agents {
			srNo := ""
			if record.SrNo != nil {
				srNo = strconv.Itoa(*record.SrNo)
			}
			t.AppendRow(table.Row{srNo, record.Name, record.CertificateNo, record.DetailsUrl})
		}
		p := result.Pagination
		t.AppendFooter(table.Row{
			"",
			fmt.Sprintf("pages %d-%d", p.StartPage, p.StartPage+p.PagesRequested-1),
			fmt.Sprintf("fetched %d/%d", p.PagesFetched, p.PagesRequested),
			fmt.Sprintf("%d records over %d pages", p.TotalRecords, p.TotalPages),
		})
		t.Render()
		return nil
	},
}
