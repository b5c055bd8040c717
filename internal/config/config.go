// Package config loads the optional pruner configuration file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultAddr is where `pruner serve` listens unless told otherwise.
const DefaultAddr = "127.0.0.1:7420"

// DefaultConfirmPreview is how many branch names the delete confirmation
// lists before summarizing the rest.
const DefaultConfirmPreview = 5

// Config holds the pruner configuration
type Config struct {
	TrunkBranches  []string `toml:"trunk_branches"`  // checked in order, first existing ref wins
	Remote         string   `toml:"remote"`          // prefix stripped from remote branch names
	Language       string   `toml:"language"`        // BCP 47 tag; empty = from environment
	ConfirmPreview int      `toml:"confirm_preview"` // names shown before "...and N more"
	Addr           string   `toml:"addr"`            // listen address for `pruner serve`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		TrunkBranches:  []string{"main", "master"},
		Remote:         "origin",
		ConfirmPreview: DefaultConfirmPreview,
		Addr:           DefaultAddr,
	}
}

// Path returns the path to the config file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pruner", "config.toml"), nil
}

// Load reads config from ~/.config/pruner/config.toml
// Returns Default() if file doesn't exist (no error)
// Returns error only if file exists but is invalid
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads config from path, filling unset fields with defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML config data on top of the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Default(), fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks field values after decoding.
func (c Config) Validate() error {
	if len(c.TrunkBranches) == 0 {
		return fmt.Errorf("trunk_branches must list at least one branch name")
	}
	for _, name := range c.TrunkBranches {
		if name == "" {
			return fmt.Errorf("trunk_branches must not contain empty names")
		}
	}
	if c.ConfirmPreview < 1 {
		return fmt.Errorf("confirm_preview must be at least 1, got %d", c.ConfirmPreview)
	}
	if err := CheckAddr(c.Addr); err != nil {
		return fmt.Errorf("addr: %w", err)
	}
	return nil
}

// CheckAddr accepts only host:port listen addresses on a loopback
// interface. The served page can delete branches, so it must not be
// reachable from other machines.
func CheckAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}
