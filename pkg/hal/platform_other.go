//go:build !linux || tinygo

package hal

import (
	"context"
	"fmt"
)

// NewHal only supports the simulated backend off Linux.
func NewHal(ctx context.Context, opts Opts) (FanHal, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Backend != BackendSimulated {
		return nil, fmt.Errorf("hal backend %q requires linux", opts.Backend)
	}
	return NewSimulated(opts.Simulated), nil
}
