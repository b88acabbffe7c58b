//go:build linux && !tinygo

package hal

import (
	"context"
	"fmt"
	"os"

	"github.com/compute-blade-community/pifan-agent/pkg/log"
	"go.uber.org/zap"
)

const deviceTreeCompatiblePath = "/sys/firmware/devicetree/base/compatible"

// NewHal creates the FanHal selected by opts.Backend. With BackendAuto the
// device tree compatible string decides between gpiod (BCM2712, Pi 5),
// periph (BCM2711, Pi 4) and hwmon (Rockchip).
func NewHal(ctx context.Context, opts Opts) (FanHal, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == BackendAuto {
		compatible, err := os.ReadFile(deviceTreeCompatiblePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read device tree compatible string: %w", err)
		}

		log.FromContext(ctx).Info("detected platform", zap.String("compatible", readableCompatible(compatible)))

		backend, err = DetectBackend(compatible)
		if err != nil {
			return nil, err
		}
	}

	switch backend {
	case BackendGpiod:
		return newGpiodHal(ctx, opts)
	case BackendHwmon:
		return newHwmonHal(ctx, opts)
	case BackendPeriph:
		return newPeriphHal(ctx, opts)
	case BackendSimulated:
		return NewSimulated(opts.Simulated), nil
	default:
		return nil, fmt.Errorf("unsupported hal backend %q", backend)
	}
}
