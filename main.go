package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
)

var version = "0.1.0"

// nopScreenshotter stands in when no screenshot portal is reachable; the
// gesture still resolves, the capture is just logged.
type nopScreenshotter struct{}

func (nopScreenshotter) TakeScreenshot(partial bool) {
	log.Printf("screenshot (partial=%v) requested, no portal available", partial)
}

// alwaysInteractive stands in when logind is unreachable. Treating the
// display as on degrades to normal gesture tracking instead of dead keys.
type alwaysInteractive struct{}

func (alwaysInteractive) Interactive() bool { return true }

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shortcutsScan := loadScanCode(cfg.ShortcutsScanFile)
	powerScan := loadScanCode(cfg.PowerScanFile)

	injector, err := NewUinputInjector(cfg.UinputPath)
	if err != nil {
		return err
	}
	defer injector.Close()

	var power PowerMonitor = alwaysInteractive{}
	systemBus, err := dbus.SystemBus()
	if err != nil {
		log.Printf("system bus unavailable, assuming interactive: %v", err)
	} else {
		defer systemBus.Close()
		power = NewLogindPowerMonitor(systemBus)
	}

	var shots Screenshotter = nopScreenshotter{}
	sessionBus, err := dbus.SessionBus()
	if err != nil {
		log.Printf("session bus unavailable, screenshots disabled: %v", err)
	} else {
		defer sessionBus.Close()
		shots = NewPortalScreenshotter(sessionBus)
	}

	reg := NewRegistry()
	defer reg.Close()

	handler := NewKeyHandler(KeyHandlerConfig{
		ShortcutsScanCode: shortcutsScan,
		PowerScanCode:     powerScan,
		ShortcutsDevice:   cfg.ShortcutsDevice,
		PowerDevice:       cfg.PowerDevice,
		LongPress:         cfg.LongPress(),
	}, reg, power, injector, shots)

	for _, r := range []role{roleShortcuts, rolePower} {
		if !handler.RoleEnabled(r) {
			log.Printf("%s role inert, its key passes through untouched", r)
		}
	}

	candidates := []string{cfg.ShortcutsDevice, cfg.PowerDevice}
	events := make(chan KeyEvent, 64)

	if err := ScanDevices(reg, candidates, events); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := WatchHotplug(ctx, reg, candidates, events); err != nil {
		log.Printf("hotplug watch disabled: %v", err)
	}

	lights := NewLights(cfg.LedsRoot)
	lightsBus := systemBus
	if cfg.LightsBus == "session" {
		lightsBus = sessionBus
	}
	if lightsBus == nil {
		log.Printf("light service disabled, %s bus unavailable", cfg.LightsBus)
	} else if err := ExportLightService(lightsBus, lights); err != nil {
		log.Printf("light service disabled: %v", err)
	} else {
		log.Printf("light service up as %s", lightsBusName)
	}

	reloads := make(chan *Config, 1)
	watcher, err := WatchConfig(configPath, func(c *Config) {
		select {
		case reloads <- c:
		default:
		}
	})
	if err != nil {
		log.Printf("config watch disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("tracking shortcuts scan=%d (%s), power scan=%d (%s), long press %s",
		shortcutsScan, cfg.ShortcutsDevice, powerScan, cfg.PowerDevice, cfg.LongPress())

	for {
		select {
		case ev := <-events:
			if !handler.HandleKey(ev) {
				// Grabbed devices deliver nowhere else; re-emit what we
				// did not consume.
				injector.InjectKey(ev.KeyCode, ev.Action, FlagNone)
			}
		case gen := <-handler.Expired():
			handler.HandleExpiry(gen)
		case c := <-reloads:
			handler.SetLongPress(c.LongPress())
			handler.SetDeviceNames(c.ShortcutsDevice, c.PowerDevice)
			log.Printf("config reloaded, long press now %s (scan codes and devices need a restart)", c.LongPress())
		case <-sigCh:
			log.Printf("shutting down")
			return nil
		}
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("keypadd: ")

	configPath := flag.String("config", DefaultConfigPath, "path to config file")
	flag.Parse()

	switch flag.Arg(0) {
	case "init":
		fmt.Printf("keypadd: initializing config at %s\n", *configPath)
		if err := initConfig(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("keypadd: config initialized")
		return
	case "version":
		fmt.Printf("keypadd %s\n", version)
		return
	case "":
	default:
		fmt.Fprintf(os.Stderr, "usage: keypadd [-config path] [init|version]\n")
		os.Exit(1)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "keypadd: %v\n", err)
		os.Exit(1)
	}
}
