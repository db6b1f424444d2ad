package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration. Every field has a working default
// so the shim comes up on a bare image with no config file at all.
type Config struct {
	ShortcutsScanFile string `yaml:"shortcuts_scan_file"`
	PowerScanFile     string `yaml:"power_scan_file"`
	ShortcutsDevice   string `yaml:"shortcuts_device"`
	PowerDevice       string `yaml:"power_device"`
	LongPressMs       int    `yaml:"long_press_ms"`
	LedsRoot          string `yaml:"leds_root"`
	UinputPath        string `yaml:"uinput_path"`
	LightsBus         string `yaml:"lights_bus"`
}

// DefaultConfigPath is where the daemon looks without a -config flag.
const DefaultConfigPath = "/etc/keypadd/keypadd.yml"

func defaultConfig() *Config {
	return &Config{
		ShortcutsScanFile: "/proc/keypad/shortcuts",
		PowerScanFile:     "/proc/keypad/power",
		ShortcutsDevice:   "gpio-keys",
		PowerDevice:       "qpnp_pon",
		LongPressMs:       500,
		LedsRoot:          "/sys/class/leds",
		UinputPath:        "/dev/uinput",
		LightsBus:         "system",
	}
}

// LoadConfig reads the YAML config at path, filling unset fields with
// defaults. A missing file yields the full default config.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.LongPressMs <= 0 {
		cfg.LongPressMs = defaultConfig().LongPressMs
	}
	if cfg.LightsBus != "system" && cfg.LightsBus != "session" {
		return nil, fmt.Errorf("lights_bus must be system or session, got %q", cfg.LightsBus)
	}

	return cfg, nil
}

// LongPress returns the long-press interval as a duration.
func (c *Config) LongPress() time.Duration {
	return time.Duration(c.LongPressMs) * time.Millisecond
}

// WatchConfig re-reads the config whenever the file changes and hands
// the result to onChange. The parent directory is watched so editors
// that replace the file are picked up too. The returned watcher is owned
// by the caller.
func WatchConfig(path string, onChange func(*Config)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				cfg, err := LoadConfig(path)
				if err != nil {
					log.Printf("config reload: %v", err)
					continue
				}
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config watcher: %v", err)
			}
		}
	}()

	return watcher, nil
}
