package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	lightsBusName   = "dev.keypadd.Lights"
	lightsObjPath   = dbus.ObjectPath("/dev/keypadd/Lights")
	lightsInterface = "dev.keypadd.Lights"
)

var lightTypeNames = map[string]LightType{
	"backlight":     LightBacklight,
	"battery":       LightBattery,
	"notifications": LightNotifications,
	"attention":     LightAttention,
}

// LightService exposes the LED driver on the bus so platform services
// can post light states instead of touching sysfs themselves.
type LightService struct {
	lights *Lights
}

// SetLight applies a light state. type is one of backlight, battery,
// notifications, attention; color is ARGB; flash 0 is steady, 1 timed.
func (s *LightService) SetLight(typ string, color uint32, flash uint32, onMs, offMs int32) *dbus.Error {
	t, ok := lightTypeNames[typ]
	if !ok {
		return dbus.NewError(lightsInterface+".UnknownType",
			[]interface{}{fmt.Sprintf("unknown light type %q", typ)})
	}
	mode := FlashNone
	if flash == 1 {
		mode = FlashTimed
	}
	s.lights.Set(t, LightState{
		Color:      color,
		Flash:      mode,
		FlashOnMs:  int(onMs),
		FlashOffMs: int(offMs),
	})
	return nil
}

// ExportLightService claims the lights bus name and exports the service
// object on the given connection.
func ExportLightService(conn *dbus.Conn, lights *Lights) error {
	svc := &LightService{lights: lights}
	if err := conn.Export(svc, lightsObjPath, lightsInterface); err != nil {
		return fmt.Errorf("export lights object: %w", err)
	}
	reply, err := conn.RequestName(lightsBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request %s: %w", lightsBusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("%s already claimed", lightsBusName)
	}
	return nil
}
