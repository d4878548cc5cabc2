package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ayaseen/cluster-probes/pkg/healthcheck"
	"github.com/ayaseen/cluster-probes/pkg/types"
)

var statusColors = map[types.Status]*color.Color{
	types.StatusOK:            color.New(color.FgGreen),
	types.StatusWarning:       color.New(color.FgYellow),
	types.StatusCritical:      color.New(color.FgRed),
	types.StatusUnknown:       color.New(color.FgWhite),
	types.StatusNotApplicable: color.New(color.Faint),
}

// printSummary prints the per-probe results and the overall verdict
func printSummary(w io.Writer, runner *healthcheck.Runner) {
	results := runner.GetResults()

	fmt.Fprintln(w, "\nCluster Probe Summary:")
	fmt.Fprintln(w, "----------------------")

	for _, check := range runner.GetChecks() {
		result, exists := results[check.ID()]
		if !exists {
			continue
		}

		c, ok := statusColors[result.Status]
		if !ok {
			c = color.New(color.Reset)
		}
		fmt.Fprintf(w, "%s %s: %s\n", c.Sprintf("[%s]", result.Status), check.Name(), result.Message)

		if !result.Passed() {
			for _, rec := range result.Recommendations {
				fmt.Fprintf(w, "  - %s\n", rec)
			}
		}
	}

	counts := runner.CountByStatus()
	fmt.Fprintf(w, "\nTotal probes: %d (OK %d, Warning %d, Critical %d)\n",
		len(results), counts[types.StatusOK], counts[types.StatusWarning], counts[types.StatusCritical])

	if runner.Passed() {
		fmt.Fprintln(w, color.GreenString("Overall: PASS"))
	} else {
		fmt.Fprintln(w, color.RedString("Overall: FAIL"))
	}
}
