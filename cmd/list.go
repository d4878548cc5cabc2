package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayaseen/cluster-probes/pkg/checks"
	"github.com/ayaseen/cluster-probes/pkg/checks/common"
)

// listCmd prints the registered probes and whether the current config enables them
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available probes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}
		return listProbes(os.Stdout, cfg)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func listProbes(w io.Writer, cfg runConfig) error {
	all := checks.GetAllChecks(common.Dependencies{Settings: cfg.Settings})

	selected, err := checks.Select(all, cfg.Probes, cfg.Skip)
	if err != nil {
		return err
	}
	enabled := make(map[string]bool, len(selected))
	for _, check := range selected {
		enabled[check.ID()] = true
	}
	categories := cfg.categoryFilter()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tENABLED\tDESCRIPTION")
	for _, check := range all {
		on := enabled[check.ID()]
		if on && len(categories) > 0 {
			on = false
			for _, cat := range categories {
				if check.Category() == cat {
					on = true
				}
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", check.ID(), check.Category(), on, check.Description())
	}
	return tw.Flush()
}
