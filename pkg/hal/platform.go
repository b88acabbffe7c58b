package hal

import (
	"fmt"
	"strings"
)

// DetectBackend maps a devicetree compatible string to the backend that
// drives a fan on that SoC.
func DetectBackend(compatible []byte) (Backend, error) {
	compatStr := string(compatible)

	switch {
	case strings.Contains(compatStr, "bcm2712"):
		return BackendGpiod, nil
	case strings.Contains(compatStr, "bcm2711"):
		return BackendPeriph, nil
	case strings.Contains(compatStr, "rockchip,"):
		return BackendHwmon, nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", readableCompatible(compatible))
	}
}

func readableCompatible(compatible []byte) string {
	return strings.Trim(strings.ReplaceAll(string(compatible), "\x00", ", "), ", ")
}
