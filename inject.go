package main

import (
	"fmt"
	"log"

	"github.com/bendahl/uinput"
)

// UinputInjector implements Injector on a uinput virtual keyboard. The
// kernel virtual device has no side channel for the canceled flag; a
// canceled release still has to reach the input stack as a release so no
// key is left stuck, so both flavors map to a key-up.
type UinputInjector struct {
	vkbd uinput.Keyboard
}

// NewUinputInjector creates the virtual keyboard device.
func NewUinputInjector(path string) (*UinputInjector, error) {
	vkbd, err := uinput.CreateKeyboard(path, []byte("keypadd"))
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard: %w", err)
	}
	return &UinputInjector{vkbd: vkbd}, nil
}

// InjectKey implements Injector.
func (u *UinputInjector) InjectKey(code uint16, action Action, flags InjectFlag) {
	var err error
	switch action {
	case ActionDown:
		err = u.vkbd.KeyDown(int(code))
	case ActionUp:
		err = u.vkbd.KeyUp(int(code))
	default:
		return
	}
	if err != nil {
		log.Printf("inject key %d: %v", code, err)
	}
}

// Close destroys the virtual keyboard.
func (u *UinputInjector) Close() error {
	return u.vkbd.Close()
}
