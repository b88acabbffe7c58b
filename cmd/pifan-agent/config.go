package main

import (
	"bytes"
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strings"

	internal_agent "github.com/compute-blade-community/pifan-agent/internal/agent"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PIFAN_AGENT"

//go:embed default-config.yaml
var defaultConfig []byte

// configSearchPaths are merged over the embedded defaults in order, when present.
func configSearchPaths() []string {
	paths := []string{"/etc/pifan-agent/config.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pifan-agent", "config.yaml"))
	}
	return paths
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a configuration file merged over the defaults")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("listen", "", "http address serving the fan state")
	flags.String("backend", "", "hardware backend: auto, gpiod, hwmon, periph or simulated")
}

// loadConfig layers the embedded defaults, config files, PIFAN_AGENT_* env vars
// and flags, in increasing order of precedence.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, searchPaths []string) (internal_agent.Config, bool, humane.Error) {
	config := internal_agent.DefaultConfig()

	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return config, false, humane.Wrap(err, "failed to read the embedded default configuration")
	}

	for _, path := range searchPaths {
		if err := mergeConfigFile(v, path, false); err != nil {
			return config, false, err
		}
	}

	if explicit, _ := flags.GetString("config"); explicit != "" {
		if err := mergeConfigFile(v, explicit, true); err != nil {
			return config, false, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range map[string]string{
		"debug":       "debug",
		"listen.http": "listen",
		"hal.backend": "backend",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return config, false, humane.Wrap(err, "failed to bind command line flag", "this is a bug, please report it")
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, false, humane.Wrap(err, "failed to parse configuration",
			"check that durations use units such as 10s or 100ms and numbers are not quoted",
		)
	}

	return config, v.GetBool("debug"), nil
}

func mergeConfigFile(v *viper.Viper, path string, required bool) humane.Error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return humane.Wrap(err, "failed to open configuration file "+path,
			"ensure the file exists and is readable by the agent",
		)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return humane.Wrap(err, "failed to parse configuration file "+path,
			"ensure the file is valid YAML",
		)
	}
	return nil
}
