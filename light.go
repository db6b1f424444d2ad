package main

import (
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// LightType selects which logical light a state applies to.
type LightType int

const (
	LightBacklight LightType = iota
	LightBattery
	LightNotifications
	LightAttention
)

// FlashMode selects steady or timed flashing output.
type FlashMode int

const (
	FlashNone FlashMode = iota
	FlashTimed
)

// LightState is one light request: ARGB color plus flash timing.
type LightState struct {
	Color      uint32
	Flash      FlashMode
	FlashOnMs  int
	FlashOffMs int
}

const (
	rampSize         = 8
	rampStepDuration = 50
	defaultMaxBright = 255
)

var brightnessRamp = [rampSize]int{0, 12, 25, 37, 50, 72, 85, 100}

func rgbToBrightness(color uint32) int {
	color &= 0x00ffffff
	return int((77*((color>>16)&0xff) + 150*((color>>8)&0xff) + 29*(color&0xff)) >> 8)
}

func isLit(s LightState) bool {
	return s.Color&0x00ffffff != 0
}

// scaledDutyPcts renders the blink ramp scaled to a channel value as the
// comma-separated list the LED driver expects.
func scaledDutyPcts(brightness int) string {
	var b strings.Builder
	for i, step := range brightnessRamp {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(step * brightness / 255))
	}
	return b.String()
}

// Lights blends backlight, battery, notification and attention light
// requests into the device's sysfs LED nodes. The RGB triple is shared
// hardware, so battery/notification/attention states are remembered and
// re-blended on every change: notification wins, then attention, then
// battery. Requests arrive on bus worker goroutines, hence the mutex.
type Lights struct {
	mu sync.Mutex

	ledsRoot     string
	panelMax     int
	battery      LightState
	notification LightState
	attention    LightState
}

// NewLights creates the driver over a sysfs leds class root
// (normally /sys/class/leds). Panel max brightness is read once.
func NewLights(ledsRoot string) *Lights {
	l := &Lights{ledsRoot: ledsRoot}
	l.panelMax = readAttrInt(l.led("lcd-backlight", "max_brightness"), defaultMaxBright)
	return l
}

func (l *Lights) led(name, attr string) string {
	return filepath.Join(l.ledsRoot, name, attr)
}

// Set applies a light state. Unknown types report false.
func (l *Lights) Set(t LightType, s LightState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch t {
	case LightBacklight:
		l.setBacklightLocked(s)
	case LightBattery:
		l.battery = s
		l.blendLocked()
	case LightNotifications:
		l.notification = scaleNotification(s)
		l.blendLocked()
	case LightAttention:
		l.attention = s
		l.blendLocked()
	default:
		return false
	}
	return true
}

func (l *Lights) setBacklightLocked(s LightState) {
	brightness := rgbToBrightness(s.Color)
	if l.panelMax != defaultMaxBright {
		brightness = brightness * l.panelMax / defaultMaxBright
	}
	writeAttrInt(l.led("lcd-backlight", "brightness"), brightness)
}

// scaleNotification pre-applies the alpha byte as a brightness factor on
// each channel, the way the framework encodes user brightness.
func scaleNotification(s LightState) LightState {
	brightness := (s.Color >> 24) & 0xff
	if brightness == 0 || brightness == 255 {
		return s
	}
	color := s.Color & 0x00ffffff
	r := ((color >> 16) & 0xff) * brightness / 0xff
	g := ((color >> 8) & 0xff) * brightness / 0xff
	b := (color & 0xff) * brightness / 0xff
	s.Color = r<<16 | g<<8 | b
	return s
}

func (l *Lights) blendLocked() {
	switch {
	case isLit(l.notification):
		l.applyLocked(l.notification)
	case isLit(l.attention):
		l.applyLocked(l.attention)
	case isLit(l.battery):
		l.applyLocked(l.battery)
	default:
		for _, c := range []string{"red", "green", "blue"} {
			writeAttrInt(l.led(c, "brightness"), 0)
			writeAttrInt(l.led(c, "blink"), 0)
		}
	}
}

func (l *Lights) applyLocked(s LightState) {
	var onMs, offMs int
	if s.Flash == FlashTimed {
		onMs, offMs = s.FlashOnMs, s.FlashOffMs
	}

	red := int((s.Color >> 16) & 0xff)
	green := int((s.Color >> 8) & 0xff)
	blue := int(s.Color & 0xff)
	blink := onMs > 0 && offMs > 0

	// Stop any running blink pattern before reprogramming.
	writeAttrInt(l.led("rgb", "rgb_blink"), 0)

	if !blink {
		writeAttrInt(l.led("red", "brightness"), red)
		writeAttrInt(l.led("green", "brightness"), green)
		writeAttrInt(l.led("blue", "brightness"), blue)
		return
	}

	stepDuration := rampStepDuration
	pauseHi := onMs - stepDuration*rampSize*2
	if stepDuration*rampSize*2 > onMs {
		stepDuration = onMs / (rampSize * 2)
		pauseHi = 0
	}

	channels := []struct {
		name     string
		startIdx int
		value    int
	}{
		{"red", 0, red},
		{"green", rampSize, green},
		{"blue", rampSize * 2, blue},
	}
	for _, c := range channels {
		writeAttrInt(l.led(c.name, "start_idx"), c.startIdx)
		writeAttr(l.led(c.name, "duty_pcts"), scaledDutyPcts(c.value))
		writeAttrInt(l.led(c.name, "pause_lo"), offMs)
		writeAttrInt(l.led(c.name, "pause_hi"), pauseHi)
		writeAttrInt(l.led(c.name, "ramp_step_ms"), stepDuration)
	}

	writeAttrInt(l.led("rgb", "rgb_blink"), 1)
}
