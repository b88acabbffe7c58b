package main

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/util"
	"github.com/spf13/cobra"
)

func init() {
	cmdGet.AddCommand(cmdGetStatus)
}

var cmdGetStatus = &cobra.Command{
	Use:     "status",
	Short:   "Get in-depth information about the current state of the fan",
	Example: "pifanctl get status -o yaml",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := clientFromContext(ctx)

		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		return render(cmd.OutOrStdout(), output(outputFormat), status, func() string {
			return util.PrintKeyValues(buildStatusKeyValues(status, time.Now()))
		})
	},
}

func buildStatusKeyValues(status *agent.StatusResponse, now time.Time) []util.KeyValuePair {
	pairs := []util.KeyValuePair{
		{
			Key:    "Backend",
			Format: "%s",
			Value:  []any{status.Backend},
			Style:  util.OkStyle,
		},
		{
			Key:    "SoC Temperature",
			Format: "%d°C",
			Value:  []any{status.Temperature},
			Style:  func(a []any) lipgloss.Style { return tempStyle(a[0].(int), status.Thresholds.TempMax) },
		},
	}

	for _, name := range sortedKeys(status.AuxiliaryTemperatures) {
		pairs = append(pairs, util.KeyValuePair{
			Key:    name + " Temperature",
			Format: "%.1f°C",
			Value:  []any{status.AuxiliaryTemperatures[name]},
			Style:  util.OkStyle,
		})
	}

	return append(pairs,
		util.KeyValuePair{
			Key:    "Fan Speed",
			Format: "%d RPM (avg %.0f)",
			Value:  []any{status.RPM, status.AverageRPM},
			Style:  rpmStyle,
		},
		util.KeyValuePair{
			Key:    "Duty Cycle",
			Format: "%d%% (target %d%%)",
			Value:  []any{status.DutyCyclePercent(), int(status.TargetDutyCycle*100 + 0.5)},
			Style:  dutyStyle,
		},
		util.KeyValuePair{
			Key:    "Full Speed Hold",
			Format: "%s",
			Value:  activeLabel(status.HoldActive),
			Style:  activeStyle,
		},
		util.KeyValuePair{
			Key:    "Hold Expires",
			Format: "%s",
			Value:  sinceLabel(status.HoldUntil, now, "in"),
			Style:  util.OkStyle,
		},
		util.KeyValuePair{
			Key:    "Cold Since",
			Format: "%s",
			Value:  sinceLabel(status.ShutdownPendingSince, now, "for"),
			Style:  util.OkStyle,
		},
		util.KeyValuePair{
			Key:    "Shutdown Cutoff",
			Format: "%s",
			Value:  activeLabel(status.Cutoff),
			Style:  cutoffStyle,
		},
	)
}
