package internal_agent

import (
	"github.com/compute-blade-community/pifan-agent/pkg/agent"
	"github.com/compute-blade-community/pifan-agent/pkg/fancontroller"
	"github.com/compute-blade-community/pifan-agent/pkg/hal"
	"github.com/compute-blade-community/pifan-agent/pkg/tachometer"
	"github.com/sierrasoftworks/humane-errors-go"
)

// ListenConfig controls where the agent publishes its state.
type ListenConfig struct {
	Http string `mapstructure:"http"`
}

// Config is the complete, static agent configuration. It is read once at
// startup; thresholds cannot change while the agent runs.
type Config struct {
	Listen     ListenConfig         `mapstructure:"listen"`
	Hal        hal.Opts             `mapstructure:"hal"`
	Fan        fancontroller.Config `mapstructure:"fan"`
	Tachometer tachometer.Config    `mapstructure:"tachometer"`
}

func DefaultConfig() Config {
	return Config{
		Listen:     ListenConfig{Http: agent.DefaultAddr},
		Hal:        hal.DefaultOpts(),
		Fan:        fancontroller.DefaultConfig(),
		Tachometer: tachometer.DefaultConfig(),
	}
}

func (c Config) Validate() humane.Error {
	if c.Listen.Http == "" {
		return humane.New("no listen address provided",
			"set listen.http to an address such as :9666 to publish the fan state",
		)
	}
	if err := c.Hal.Validate(); err != nil {
		return err
	}
	return c.Fan.Validate()
}
