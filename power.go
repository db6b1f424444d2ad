package main

import (
	"github.com/godbus/dbus/v5"
)

const (
	logindDest     = "org.freedesktop.login1"
	logindSeatPath = "/org/freedesktop/login1/seat/seat0"

	seatActiveSessionProp = "org.freedesktop.login1.Seat.ActiveSession"
	sessionActiveProp     = "org.freedesktop.login1.Session.Active"
	sessionIdleHintProp   = "org.freedesktop.login1.Session.IdleHint"
)

// LogindPowerMonitor implements PowerMonitor against logind: the display
// counts as interactive when seat0 has an active, non-idle session. The
// seat's active session is resolved on every query so session switches
// are picked up without subscriptions.
type LogindPowerMonitor struct {
	conn *dbus.Conn
}

// NewLogindPowerMonitor wraps an established system-bus connection.
func NewLogindPowerMonitor(conn *dbus.Conn) *LogindPowerMonitor {
	return &LogindPowerMonitor{conn: conn}
}

// Interactive implements PowerMonitor. Query failures read as
// interactive: a broken logind should degrade to normal key tracking,
// not to a dead gesture.
func (m *LogindPowerMonitor) Interactive() bool {
	seat := m.conn.Object(logindDest, logindSeatPath)
	v, err := seat.GetProperty(seatActiveSessionProp)
	if err != nil {
		return true
	}

	// ActiveSession is (so): session id and object path. An empty path
	// means nobody is on the seat.
	fields, ok := v.Value().([]interface{})
	if !ok || len(fields) != 2 {
		return true
	}
	path, ok := fields[1].(dbus.ObjectPath)
	if !ok || !path.IsValid() {
		return true
	}
	if path == "/" {
		return false
	}

	session := m.conn.Object(logindDest, path)
	active, err := session.GetProperty(sessionActiveProp)
	if err != nil {
		return true
	}
	if b, ok := active.Value().(bool); ok && !b {
		return false
	}
	idle, err := session.GetProperty(sessionIdleHintProp)
	if err != nil {
		return true
	}
	if b, ok := idle.Value().(bool); ok && b {
		return false
	}
	return true
}
