package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jochenvg/go-udev"
)

// WatchHotplug attaches input event nodes that appear after startup, so a
// role that could not bind its trusted device at boot can still bind once
// the device registers.
func WatchHotplug(ctx context.Context, reg *Registry, candidates []string, ch chan<- KeyEvent) error {
	u := udev.Udev{}
	m := u.NewMonitorFromNetlink("udev")
	m.FilterAddMatchSubsystem("input")

	devCh, err := m.DeviceChan(ctx)
	if err != nil {
		return fmt.Errorf("udev monitor: %w", err)
	}

	go func() {
		for d := range devCh {
			if d.Action() != "add" {
				continue
			}
			node := d.Devnode()
			if node == "" || !strings.Contains(node, "/event") {
				continue
			}
			if err := reg.Attach(node, candidates, ch); err != nil {
				log.Printf("hotplug %s: %v", node, err)
			}
		}
	}()

	return nil
}
