package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testShortcutsScan = 250
	testPowerScan     = 116

	shortcutsDev = 1
	powerDev     = 2
	cloneDev     = 3
	unknownDev   = 9
)

type fakeNames struct {
	names map[int]string
}

func (f *fakeNames) NameOf(id int) (string, bool) {
	n, ok := f.names[id]
	return n, ok
}

type injection struct {
	code   uint16
	action Action
	flags  InjectFlag
}

type fakeInjector struct {
	injected []injection
}

func (f *fakeInjector) InjectKey(code uint16, action Action, flags InjectFlag) {
	f.injected = append(f.injected, injection{code, action, flags})
}

type fakeShots struct {
	full    int
	partial int
}

func (f *fakeShots) TakeScreenshot(partial bool) {
	if partial {
		f.partial++
	} else {
		f.full++
	}
}

type fakePower struct {
	interactive bool
}

func (f *fakePower) Interactive() bool { return f.interactive }

type handlerFixture struct {
	h      *KeyHandler
	names  *fakeNames
	inject *fakeInjector
	shots  *fakeShots
	power  *fakePower
}

func newFixture(longPress time.Duration) *handlerFixture {
	f := &handlerFixture{
		names: &fakeNames{names: map[int]string{
			shortcutsDev: "gpio-keys",
			powerDev:     "qpnp_pon",
			cloneDev:     "gpio-keys",
		}},
		inject: &fakeInjector{},
		shots:  &fakeShots{},
		power:  &fakePower{interactive: true},
	}
	f.h = NewKeyHandler(KeyHandlerConfig{
		ShortcutsScanCode: testShortcutsScan,
		PowerScanCode:     testPowerScan,
		ShortcutsDevice:   "gpio-keys",
		PowerDevice:       "qpnp_pon",
		LongPress:         longPress,
	}, f.names, f.power, f.inject, f.shots)
	return f
}

func shortcutsKey(action Action) KeyEvent {
	return KeyEvent{DeviceID: shortcutsDev, ScanCode: testShortcutsScan, KeyCode: 600, Action: action}
}

func powerKey(action Action) KeyEvent {
	return KeyEvent{DeviceID: powerDev, ScanCode: testPowerScan, KeyCode: 116, Action: action}
}

func TestUntrustedDevicePassthrough(t *testing.T) {
	f := newFixture(time.Minute)

	events := []KeyEvent{
		{DeviceID: unknownDev, ScanCode: testShortcutsScan, KeyCode: 600, Action: ActionDown},
		{DeviceID: unknownDev, ScanCode: testShortcutsScan, KeyCode: 600, Action: ActionUp},
		{DeviceID: unknownDev, ScanCode: testPowerScan, KeyCode: 116, Action: ActionDown},
		{DeviceID: unknownDev, ScanCode: testPowerScan, KeyCode: 116, Action: ActionUp},
	}
	for _, ev := range events {
		assert.False(t, f.h.HandleKey(ev))
	}

	assert.Empty(t, f.inject.injected)
	assert.Zero(t, f.shots.full)
	assert.Zero(t, f.shots.partial)
	assert.False(t, f.h.roles[roleShortcuts].pressed)
	assert.False(t, f.h.roles[rolePower].pressed)
}

func TestBindingIsMonotonic(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))
	require.Equal(t, shortcutsDev, f.h.roles[roleShortcuts].trustedID)

	// Another device with the same hardware name must stay untrusted.
	clone := KeyEvent{DeviceID: cloneDev, ScanCode: testShortcutsScan, KeyCode: 600, Action: ActionDown}
	assert.False(t, f.h.HandleKey(clone))
	assert.Equal(t, shortcutsDev, f.h.roles[roleShortcuts].trustedID)
	assert.False(t, f.h.roles[roleShortcuts].pressed)
}

func TestLateDeviceRegistrationBinds(t *testing.T) {
	f := newFixture(time.Minute)
	delete(f.names.names, powerDev)

	// Name lookup fails while the device is unregistered; the result is
	// not cached as a negative.
	assert.False(t, f.h.HandleKey(powerKey(ActionDown)))
	assert.Zero(t, f.h.roles[rolePower].trustedID)

	f.names.names[powerDev] = "qpnp_pon"
	assert.True(t, f.h.HandleKey(powerKey(ActionDown)))
	assert.Equal(t, powerDev, f.h.roles[rolePower].trustedID)
}

func TestWrongScanCodePassesThrough(t *testing.T) {
	f := newFixture(time.Minute)
	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))

	other := KeyEvent{DeviceID: shortcutsDev, ScanCode: 999, KeyCode: 30, Action: ActionDown}
	assert.False(t, f.h.HandleKey(other))
}

func TestLoneKeyIsMirrored(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))

	require.Len(t, f.inject.injected, 2)
	assert.Equal(t, injection{600, ActionDown, FlagNone}, f.inject.injected[0])
	assert.Equal(t, injection{600, ActionUp, FlagNone}, f.inject.injected[1])
	assert.Zero(t, f.shots.full)
	assert.Zero(t, f.shots.partial)
	assert.False(t, f.h.roles[roleShortcuts].pressed)
}

func TestLearnedKeyCodeFollowsHardware(t *testing.T) {
	f := newFixture(time.Minute)

	ev := shortcutsKey(ActionDown)
	ev.KeyCode = 601
	require.True(t, f.h.HandleKey(ev))
	require.Equal(t, injection{601, ActionDown, FlagNone}, f.inject.injected[0])

	ev = shortcutsKey(ActionUp)
	ev.KeyCode = 602
	require.True(t, f.h.HandleKey(ev))
	assert.Equal(t, injection{602, ActionUp, FlagNone}, f.inject.injected[1])
}

func TestQuickComboTakesFullScreenshot(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionUp)))

	assert.Equal(t, 1, f.shots.full)
	assert.Zero(t, f.shots.partial)

	// The power down became a canceled phantom release of the shortcuts
	// key, never a genuine second press.
	require.Len(t, f.inject.injected, 2)
	assert.Equal(t, injection{600, ActionDown, FlagNone}, f.inject.injected[0])
	assert.Equal(t, injection{600, ActionUp, FlagCanceled}, f.inject.injected[1])

	assert.False(t, f.h.roles[roleShortcuts].pressed)
	assert.False(t, f.h.roles[rolePower].pressed)

	// The deferred action was canceled; even a stale expiry is a no-op.
	f.h.HandleExpiry(f.h.timerGen - 1)
	f.h.HandleExpiry(f.h.timerGen)
	assert.Zero(t, f.shots.partial)
}

func TestReleaseOfSecondKeyAlsoResolves(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(powerKey(ActionDown)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))

	assert.Equal(t, 1, f.shots.full)
	assert.False(t, f.h.roles[roleShortcuts].pressed)
	assert.False(t, f.h.roles[rolePower].pressed)
}

func TestLongPressTakesPartialScreenshot(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))

	f.h.HandleExpiry(f.h.timerGen)

	assert.Equal(t, 1, f.shots.partial)
	assert.Zero(t, f.shots.full)

	// Both learned key codes got canceling releases and the state is
	// fully unwound.
	n := len(f.inject.injected)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, injection{600, ActionUp, FlagCanceled}, f.inject.injected[n-2])
	assert.Equal(t, injection{116, ActionUp, FlagCanceled}, f.inject.injected[n-1])
	assert.False(t, f.h.roles[roleShortcuts].pressed)
	assert.False(t, f.h.roles[rolePower].pressed)

	// A second interval's worth of waiting produces nothing more.
	f.h.HandleExpiry(f.h.timerGen)
	assert.Equal(t, 1, f.shots.partial)
}

func TestTimerDeliversExpiry(t *testing.T) {
	f := newFixture(5 * time.Millisecond)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))

	select {
	case gen := <-f.h.Expired():
		f.h.HandleExpiry(gen)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	assert.Equal(t, 1, f.shots.partial)
}

func TestEarlyReleaseCancelsTimer(t *testing.T) {
	f := newFixture(5 * time.Millisecond)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionUp)))

	time.Sleep(25 * time.Millisecond)
	for {
		select {
		case gen := <-f.h.Expired():
			// Anything that slipped out before Stop is stale by now.
			f.h.HandleExpiry(gen)
			continue
		default:
		}
		break
	}
	assert.Zero(t, f.shots.partial)
	assert.Equal(t, 1, f.shots.full)
}

func TestStaleExpiryAfterRearmIsDropped(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))
	stale := f.h.timerGen

	// Resolve and restart the gesture; the old token must not fire the
	// deferred action against the new press state.
	require.True(t, f.h.HandleKey(powerKey(ActionUp)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))

	f.h.HandleExpiry(stale)
	assert.Zero(t, f.shots.partial)
}

func TestIdempotentRelease(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(powerKey(ActionUp)))

	require.Len(t, f.inject.injected, 1)
	assert.Equal(t, injection{116, ActionUp, FlagNone}, f.inject.injected[0])
	assert.Zero(t, f.shots.full)
	assert.Zero(t, f.shots.partial)
}

func TestRepeatIsConsumedWithoutStateChange(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	before := len(f.inject.injected)

	assert.True(t, f.h.HandleKey(shortcutsKey(ActionOther)))
	assert.Len(t, f.inject.injected, before)
	assert.True(t, f.h.roles[roleShortcuts].pressed)
}

func TestNonInteractiveDownIsNotTracked(t *testing.T) {
	f := newFixture(time.Minute)
	f.power.interactive = false

	// The key is accepted and mirrored, but a wake press must not start
	// gesture tracking.
	require.True(t, f.h.HandleKey(powerKey(ActionDown)))
	assert.Equal(t, injection{116, ActionDown, FlagNone}, f.inject.injected[0])
	assert.False(t, f.h.roles[rolePower].pressed)

	// The other key's down therefore sees no pressed peer.
	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	assert.Equal(t, injection{600, ActionDown, FlagNone}, f.inject.injected[1])

	require.True(t, f.h.HandleKey(powerKey(ActionUp)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))
	assert.Zero(t, f.shots.full)
	assert.Zero(t, f.shots.partial)
}

func TestDisabledRoleNeverMatches(t *testing.T) {
	f := &handlerFixture{
		names:  &fakeNames{names: map[int]string{shortcutsDev: "gpio-keys", powerDev: "qpnp_pon"}},
		inject: &fakeInjector{},
		shots:  &fakeShots{},
		power:  &fakePower{interactive: true},
	}
	f.h = NewKeyHandler(KeyHandlerConfig{
		ShortcutsScanCode: DisabledScanCode,
		PowerScanCode:     testPowerScan,
		ShortcutsDevice:   "gpio-keys",
		PowerDevice:       "qpnp_pon",
		LongPress:         time.Minute,
	}, f.names, f.power, f.inject, f.shots)

	assert.False(t, f.h.RoleEnabled(roleShortcuts))
	assert.True(t, f.h.RoleEnabled(rolePower))

	// No scan code on this device can be negative, so the disabled role
	// passes everything through.
	assert.False(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	assert.True(t, f.h.HandleKey(powerKey(ActionDown)))
}

func TestSetDeviceNamesOnlyAffectsUnboundRoles(t *testing.T) {
	f := newFixture(time.Minute)

	require.True(t, f.h.HandleKey(shortcutsKey(ActionDown)))
	require.True(t, f.h.HandleKey(shortcutsKey(ActionUp)))

	f.h.SetDeviceNames("other-keys", "other-pon")
	assert.Equal(t, "gpio-keys", f.h.roles[roleShortcuts].name)
	assert.Equal(t, "other-pon", f.h.roles[rolePower].name)
}
