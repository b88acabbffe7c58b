package hal

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const hwmonPwmMax = 255

// findHwmonDir scans <root>/hwmon*/name for a device matching name and
// returns its directory.
func findHwmonDir(root, name string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "hwmon*", "name"))
	if err != nil {
		return "", fmt.Errorf("failed to glob hwmon devices: %w", err)
	}
	sort.Strings(matches)

	for _, namePath := range matches {
		raw, err := os.ReadFile(namePath)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(raw)) == name {
			return filepath.Dir(namePath), nil
		}
	}

	return "", fmt.Errorf("no hwmon device found with name %q", name)
}

// hwmonPwm drives the kernel pwm-fan driver through pwm1 (0-255).
type hwmonPwm struct {
	pwmPath       string
	pwmEnablePath string
}

func newHwmonPwm(root, name string) (*hwmonPwm, error) {
	dir, err := findHwmonDir(root, name)
	if err != nil {
		return nil, err
	}

	pwmPath := filepath.Join(dir, "pwm1")
	if _, err := os.Stat(pwmPath); err != nil {
		return nil, fmt.Errorf("found %s hwmon at %s but pwm1 does not exist: %w", name, dir, err)
	}

	p := &hwmonPwm{
		pwmPath:       pwmPath,
		pwmEnablePath: pwmPath + "_enable",
	}

	// 1 = manual PWM control
	if err := os.WriteFile(p.pwmEnablePath, []byte("1"), 0644); err != nil {
		return nil, fmt.Errorf("failed to set pwm1_enable to manual mode: %w", err)
	}

	// The ramp starts from a stopped fan, whatever the kernel left in pwm1.
	if err := p.SetDutyCycle(0); err != nil {
		return nil, fmt.Errorf("failed to reset pwm1: %w", err)
	}

	return p, nil
}

func (p *hwmonPwm) SetDutyCycle(value float64) error {
	raw := hwmonPwmValue(value)
	pwmOutputValue.Set(float64(raw))
	return os.WriteFile(p.pwmPath, []byte(strconv.Itoa(raw)), 0644)
}

func hwmonPwmValue(value float64) int {
	switch {
	case value <= 0:
		return 0
	case value >= 1:
		return hwmonPwmMax
	default:
		return int(math.Round(value * hwmonPwmMax))
	}
}

// HwmonTemperature returns the first temp*_input reading of the hwmon device
// called name, in degrees Celsius.
func HwmonTemperature(root, name string) (float64, error) {
	dir, err := findHwmonDir(root, name)
	if err != nil {
		return 0, err
	}

	inputs, err := filepath.Glob(filepath.Join(dir, "temp*_input"))
	if err != nil {
		return 0, fmt.Errorf("failed to glob temperature inputs: %w", err)
	}
	if len(inputs) == 0 {
		return 0, fmt.Errorf("hwmon device %q at %s has no temperature inputs", name, dir)
	}
	sort.Strings(inputs)

	milli, err := readIntFile(inputs[0])
	if err != nil {
		return 0, err
	}
	return float64(milli) / 1000, nil
}

// AuxiliaryTemperatures reads HwmonTemperature for every name, skipping
// devices that are absent or unreadable.
func AuxiliaryTemperatures(root string, names []string) map[string]float64 {
	temps := make(map[string]float64, len(names))
	for _, name := range names {
		if temp, err := HwmonTemperature(root, name); err == nil {
			temps[name] = temp
		}
	}
	return temps
}
