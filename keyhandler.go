package main

import (
	"time"
)

// Action classifies a key event edge.
type Action int

const (
	ActionOther Action = iota // repeat or anything else the kernel reports
	ActionDown
	ActionUp
)

// InjectFlag qualifies a synthesized key event.
type InjectFlag int

const (
	FlagNone InjectFlag = 0
	// FlagCanceled marks a synthesized release that unwinds a suppressed
	// press and must not be treated as a genuine user release downstream.
	FlagCanceled InjectFlag = 1
)

// KeyEvent is one raw key edge as read from an input device.
type KeyEvent struct {
	DeviceID int
	ScanCode int
	KeyCode  uint16
	Action   Action
}

// DeviceNames resolves a device id to the hardware-reported device name.
// A removed or unknown id reports ok=false.
type DeviceNames interface {
	NameOf(id int) (name string, ok bool)
}

// Injector synthesizes key events on the virtual input stream.
type Injector interface {
	InjectKey(code uint16, action Action, flags InjectFlag)
}

// Screenshotter requests a screenshot capture, full-screen or of a
// selected region. Fire-and-forget.
type Screenshotter interface {
	TakeScreenshot(partial bool)
}

// PowerMonitor reports whether the display is currently interactive.
type PowerMonitor interface {
	Interactive() bool
}

type role int

const (
	roleShortcuts role = iota
	rolePower
	roleCount
)

func (r role) String() string {
	if r == roleShortcuts {
		return "shortcuts"
	}
	return "power"
}

// roleBinding tracks one of the two cooperating keys. trustedID stays 0
// until the first event from a device whose name matches; after that only
// that device can speak for the role. scanCode -1 disables the role.
type roleBinding struct {
	name      string
	trustedID int
	scanCode  int
	keyCode   uint16
	pressed   bool
}

// KeyHandlerConfig carries the startup-bound parameters of the gesture core.
type KeyHandlerConfig struct {
	ShortcutsScanCode int
	PowerScanCode     int
	ShortcutsDevice   string
	PowerDevice       string
	LongPress         time.Duration
}

// KeyHandler turns the simultaneous press of the shortcuts key and the
// power key into a screenshot while re-injecting everything else it
// suppresses. All methods except the time.AfterFunc callback must be
// called from a single goroutine; expiries are delivered back to that
// goroutine through Expired.
type KeyHandler struct {
	roles     [roleCount]roleBinding
	names     DeviceNames
	power     PowerMonitor
	injector  Injector
	shots     Screenshotter
	longPress time.Duration

	// timerGen stamps each armed timer; arm and cancel both advance it,
	// so an expiry token minted before the latest arm/cancel is stale
	// and HandleExpiry drops it.
	timerGen uint64
	pending  *time.Timer
	expired  chan uint64
}

// NewKeyHandler builds the gesture core. The capability interfaces are
// injected so tests can substitute fakes.
func NewKeyHandler(cfg KeyHandlerConfig, names DeviceNames, power PowerMonitor, injector Injector, shots Screenshotter) *KeyHandler {
	return &KeyHandler{
		roles: [roleCount]roleBinding{
			roleShortcuts: {name: cfg.ShortcutsDevice, scanCode: cfg.ShortcutsScanCode},
			rolePower:     {name: cfg.PowerDevice, scanCode: cfg.PowerScanCode},
		},
		names:     names,
		power:     power,
		injector:  injector,
		shots:     shots,
		longPress: cfg.LongPress,
		expired:   make(chan uint64, 4),
	}
}

// SetLongPress adjusts the long-press interval for timers armed after the
// call. Used by config hot-reload; runs on the handler goroutine.
func (h *KeyHandler) SetLongPress(d time.Duration) {
	h.longPress = d
}

// SetDeviceNames updates the trusted hardware names for roles that have
// not bound a device yet. Bound roles keep their device; binding is
// monotonic for the process lifetime.
func (h *KeyHandler) SetDeviceNames(shortcuts, power string) {
	if h.roles[roleShortcuts].trustedID == 0 {
		h.roles[roleShortcuts].name = shortcuts
	}
	if h.roles[rolePower].trustedID == 0 {
		h.roles[rolePower].name = power
	}
}

// RoleEnabled reports whether a role has a usable scan code.
func (h *KeyHandler) RoleEnabled(r role) bool {
	return h.roles[r].scanCode >= 0
}

// HandleKey processes one raw key event. It returns true when the event
// was consumed and must not be forwarded.
func (h *KeyHandler) HandleKey(ev KeyEvent) bool {
	return h.handleRole(roleShortcuts, ev) || h.handleRole(rolePower, ev)
}

func (h *KeyHandler) handleRole(r role, ev KeyEvent) bool {
	self := &h.roles[r]
	peer := &h.roles[(r+1)%roleCount]

	if self.trustedID == 0 {
		name, ok := h.names.NameOf(ev.DeviceID)
		if !ok || name != self.name || self.name == "" {
			return false
		}
		self.trustedID = ev.DeviceID
	} else if self.trustedID != ev.DeviceID {
		return false
	}

	if ev.ScanCode != self.scanCode {
		return false
	}
	self.keyCode = ev.KeyCode

	switch ev.Action {
	case ActionDown:
		if peer.pressed {
			h.injector.InjectKey(peer.keyCode, ActionUp, FlagCanceled)
			h.armPartial()
		} else {
			h.injector.InjectKey(self.keyCode, ActionDown, FlagNone)
		}
		// A press that wakes the device must not start gesture tracking.
		if h.power.Interactive() {
			self.pressed = true
		}
	case ActionUp:
		if peer.pressed {
			h.shots.TakeScreenshot(false)
			peer.pressed = false
		} else {
			h.injector.InjectKey(self.keyCode, ActionUp, FlagNone)
		}
		h.cancelPartial()
		self.pressed = false
	}

	return true
}

// armPartial schedules the partial-screenshot action one long-press
// interval from now, replacing any pending schedule.
func (h *KeyHandler) armPartial() {
	h.timerGen++
	gen := h.timerGen
	if h.pending != nil {
		h.pending.Stop()
	}
	h.pending = time.AfterFunc(h.longPress, func() {
		h.expired <- gen
	})
}

func (h *KeyHandler) cancelPartial() {
	h.timerGen++
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
}

// Expired delivers generation tokens from armed timers. The owning loop
// must pass each token to HandleExpiry.
func (h *KeyHandler) Expired() <-chan uint64 {
	return h.expired
}

// HandleExpiry runs the deferred partial-screenshot action. Stale tokens
// and already-resolved gestures are no-ops.
func (h *KeyHandler) HandleExpiry(gen uint64) {
	if gen != h.timerGen {
		return
	}
	shortcuts := &h.roles[roleShortcuts]
	power := &h.roles[rolePower]
	if !shortcuts.pressed || !power.pressed {
		return
	}
	h.shots.TakeScreenshot(true)
	h.injector.InjectKey(shortcuts.keyCode, ActionUp, FlagCanceled)
	h.injector.InjectKey(power.keyCode, ActionUp, FlagCanceled)
	shortcuts.pressed = false
	power.pressed = false
}
