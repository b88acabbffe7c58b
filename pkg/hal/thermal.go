package hal

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ThermalZone reads a sysfs file holding a temperature in millidegrees Celsius.
type ThermalZone struct {
	Path string
}

func (tz ThermalZone) ReadMilliCelsius() (int, error) {
	return readIntFile(tz.Path)
}

func readIntFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return value, nil
}
