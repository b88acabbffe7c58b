package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	"github.com/compute-blade-community/pifan-agent/pkg/util"
	"github.com/spf13/cobra"
)

const curveStep = 5

func init() {
	cmdDescribe.AddCommand(cmdDescribeFan)
}

var cmdDescribeFan = &cobra.Command{
	Use:     "fan",
	Aliases: fanAliases,
	Short:   "Show the thresholds and the duty cycle curve the agent runs with",
	Example: "pifanctl describe fan",
	Args:    cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client := clientFromContext(ctx)

		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		curve, curveErr := fanCurve(status.Thresholds)
		if curveErr != nil {
			return curveErr
		}

		description := map[string]any{
			"thresholds": status.Thresholds,
			"curve":      curve,
		}

		return render(cmd.OutOrStdout(), output(outputFormat), description, func() string {
			return util.PrintKeyValues(buildThresholdKeyValues(status.Thresholds)) + "\n\n" +
				util.PrintKeyValues(buildCurveKeyValues(curve, status.Thresholds.TempMax))
		})
	},
}

type curvePoint struct {
	Temperature int `json:"temperature" yaml:"temperature"`
	Percent     int `json:"percent" yaml:"percent"`
}

// fanCurve samples the agent's linear duty cycle planner every curveStep
// degrees from just below the start threshold up to full speed.
func fanCurve(thresholds agent.Thresholds) ([]curvePoint, error) {
	config := fancontroller.DefaultConfig()
	config.TempMin = thresholds.TempMin
	config.TempMax = thresholds.TempMax

	planner, err := fancontroller.NewLinearPlanner(config)
	if err != nil {
		return nil, err
	}

	var curve []curvePoint
	for temp := thresholds.TempMin - curveStep; temp < thresholds.TempMax; temp += curveStep {
		curve = append(curve, curvePoint{
			Temperature: temp,
			Percent:     int(planner.Plan(temp)*100 + 0.5),
		})
	}
	curve = append(curve, curvePoint{Temperature: thresholds.TempMax, Percent: 100})
	return curve, nil
}

func buildThresholdKeyValues(thresholds agent.Thresholds) []util.KeyValuePair {
	return []util.KeyValuePair{
		{Key: "Fan Start", Format: "%d°C", Value: []any{thresholds.TempMin}, Style: util.OkStyle},
		{Key: "Full Speed", Format: "%d°C", Value: []any{thresholds.TempMax}, Style: util.OkStyle},
		{Key: "Full Speed Hold", Format: "%s", Value: []any{thresholds.HoldDuration}, Style: util.OkStyle},
		{Key: "Shutdown Delay", Format: "%s", Value: []any{thresholds.ShutdownDelay}, Style: util.OkStyle},
		{Key: "Poll Interval", Format: "%s", Value: []any{thresholds.PollInterval}, Style: util.OkStyle},
	}
}

func buildCurveKeyValues(curve []curvePoint, tempMax int) []util.KeyValuePair {
	values := make([]util.KeyValuePair, len(curve))
	for idx, point := range curve {
		point := point
		values[idx] = util.KeyValuePair{
			Key:    fmt.Sprintf("%d°C", point.Temperature),
			Format: "%d%%",
			Value:  []any{point.Percent},
			Style: func([]any) lipgloss.Style {
				return tempStyle(point.Temperature, tempMax)
			},
		}
	}
	return values
}
