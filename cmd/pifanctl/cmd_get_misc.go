package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	cmdGet.AddCommand(cmdGetTemp)
	cmdGet.AddCommand(cmdGetFan)
}

var (
	fanAliases = []string{"fan_speed", "rpm"}

	cmdGetTemp = &cobra.Command{
		Use:     "temp",
		Aliases: []string{"temperature"},
		Short:   "Get the SoC temperature used for fan control",
		Example: "pifanctl get temp",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			values := map[string]any{"temperature": status.Temperature}
			if len(status.AuxiliaryTemperatures) > 0 {
				values["auxiliary_temperatures"] = status.AuxiliaryTemperatures
			}

			return render(cmd.OutOrStdout(), output(outputFormat), values, func() string {
				text := fmt.Sprintf("%d°C", status.Temperature)
				for _, name := range sortedKeys(status.AuxiliaryTemperatures) {
					text += fmt.Sprintf("\n%s: %.1f°C", name, status.AuxiliaryTemperatures[name])
				}
				return text
			})
		},
	}

	cmdGetFan = &cobra.Command{
		Use:     "fan",
		Aliases: fanAliases,
		Short:   "Get the fan speed and duty cycle",
		Example: "pifanctl get fan",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := clientFromContext(ctx)

			status, err := client.Status(ctx)
			if err != nil {
				return err
			}

			values := map[string]any{
				"rpm":         status.RPM,
				"average_rpm": status.AverageRPM,
				"duty_cycle":  status.DutyCycle,
			}

			return render(cmd.OutOrStdout(), output(outputFormat), values, func() string {
				return fmt.Sprintf("%d RPM (%d%%)", status.RPM, status.DutyCyclePercent())
			})
		},
	}
)

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
