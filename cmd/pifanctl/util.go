package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/compute-blade-community/pifan-agent/pkg/util"
)

func activeLabel(b bool) []any {
	if b {
		return []any{"Active"}
	}
	return []any{"Off"}
}

func sinceLabel(t *time.Time, now time.Time, prefix string) []any {
	if t == nil {
		return []any{"-"}
	}
	return []any{fmt.Sprintf("%s %s", prefix, t.Sub(now).Abs().Round(time.Second))}
}

func activeStyle(a []any) lipgloss.Style {
	color := util.ColorUnknown

	switch active := a[0].(string); active {
	case "Active":
		color = util.ColorWarning

	case "Off":
		color = util.ColorOk
	}

	return lipgloss.NewStyle().Foreground(color)
}

func cutoffStyle(a []any) lipgloss.Style {
	if a[0].(string) == "Active" {
		return lipgloss.NewStyle().Foreground(util.ColorUnknown)
	}
	return lipgloss.NewStyle().Foreground(util.ColorOk)
}

// tempStyle colours temperatures relative to the full speed threshold.
func tempStyle(temp int, tempMax int) lipgloss.Style {
	color := util.ColorOk

	if temp >= tempMax {
		color = util.ColorCritical
	} else if temp >= tempMax-10 {
		color = util.ColorWarning
	}

	return lipgloss.NewStyle().Foreground(color)
}

func dutyStyle(a []any) lipgloss.Style {
	color := util.ColorOk

	if percent := a[0].(int); percent >= 100 {
		color = util.ColorCritical
	} else if percent >= 75 {
		color = util.ColorWarning
	}

	return lipgloss.NewStyle().Foreground(color)
}

func rpmStyle(a []any) lipgloss.Style {
	if rpm := a[0].(int); rpm == 0 {
		return lipgloss.NewStyle().Foreground(util.ColorUnknown)
	}
	return lipgloss.NewStyle().Foreground(util.ColorOk)
}
