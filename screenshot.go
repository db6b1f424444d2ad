package main

import (
	"log"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest       = "org.freedesktop.portal.Desktop"
	portalPath       = "/org/freedesktop/portal/desktop"
	portalScreenshot = "org.freedesktop.portal.Screenshot.Screenshot"
)

// PortalScreenshotter implements Screenshotter against the desktop
// portal. A partial capture maps to the portal's interactive mode, which
// lets the compositor offer a region pick.
type PortalScreenshotter struct {
	conn *dbus.Conn
}

// NewPortalScreenshotter wraps an established session-bus connection.
func NewPortalScreenshotter(conn *dbus.Conn) *PortalScreenshotter {
	return &PortalScreenshotter{conn: conn}
}

// TakeScreenshot implements Screenshotter. The portal call can block on
// compositor interaction, so it runs off the event loop; failures are
// logged, never propagated.
func (p *PortalScreenshotter) TakeScreenshot(partial bool) {
	go func() {
		options := map[string]dbus.Variant{
			"interactive": dbus.MakeVariant(partial),
		}
		obj := p.conn.Object(portalDest, portalPath)
		call := obj.Call(portalScreenshot, 0, "", options)
		if call.Err != nil {
			log.Printf("screenshot (partial=%v): %v", partial, call.Err)
		}
	}()
}
