package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// config is surgecorefmt's own small TOML manifest, mirroring the shape of
// surge.toml's [package]-style sections: a golden-fixture directory and a
// default dump mode.
type config struct {
	Golden struct {
		Dir string `toml:"dir"`
	} `toml:"golden"`
	Dump struct {
		Mode string `toml:"mode"` // "tree" or "flat"
	} `toml:"dump"`
}

func defaultConfig() config {
	var c config
	c.Golden.Dir = "testdata/golden"
	c.Dump.Mode = "tree"
	return c
}

// loadConfig reads --config if given, otherwise returns defaultConfig.
func loadConfig(cmd *cobra.Command) (config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config{}, err
	}
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return config{}, fmt.Errorf("surgecorefmt: failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
