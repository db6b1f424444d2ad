package main

import (
	"fmt"
	"log"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// Registry owns the open input devices. Each device gets a process-local
// id starting at 1 (the gesture core uses 0 for "unbound"). The registry
// doubles as the device-name lookup for trust resolution.
type Registry struct {
	mu     sync.Mutex
	nextID int
	devs   map[int]*evdev.InputDevice
	names  map[int]string
	paths  map[string]int
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID: 1,
		devs:   make(map[int]*evdev.InputDevice),
		names:  make(map[int]string),
		paths:  make(map[string]int),
	}
}

// NameOf implements DeviceNames.
func (r *Registry) NameOf(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.names[id]
	return name, ok
}

// Attach opens an event node, and if its reported name is one of the
// candidate hardware names, grabs it exclusively and starts a reader
// feeding ch. Nodes already open or not matching are left alone.
func (r *Registry) Attach(path string, candidates []string, ch chan<- KeyEvent) error {
	r.mu.Lock()
	if _, open := r.paths[path]; open {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	dev, err := evdev.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	name, err := dev.Name()
	if err != nil {
		dev.Close()
		return fmt.Errorf("name of %s: %w", path, err)
	}

	wanted := false
	for _, c := range candidates {
		if c != "" && name == c {
			wanted = true
			break
		}
	}
	if !wanted {
		dev.Close()
		return nil
	}

	if err := dev.Grab(); err != nil {
		dev.Close()
		return fmt.Errorf("grab %s: %w", path, err)
	}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.devs[id] = dev
	r.names[id] = name
	r.paths[path] = id
	r.mu.Unlock()

	log.Printf("attached %s (%s) as device %d", path, name, id)
	go r.read(id, path, dev, ch)
	return nil
}

// read pumps key events from one device into ch until the device errors
// or is closed. Scan codes arrive as EV_MSC/MSC_SCAN immediately before
// the EV_KEY they describe and are cleared at each sync boundary.
func (r *Registry) read(id int, path string, dev *evdev.InputDevice, ch chan<- KeyEvent) {
	lastScan := -1
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			r.detach(id, path)
			return
		}
		switch ev.Type {
		case evdev.EV_MSC:
			if ev.Code == evdev.MSC_SCAN {
				lastScan = int(ev.Value)
			}
		case evdev.EV_KEY:
			scan := lastScan
			if scan < 0 {
				// Drivers that report no scan code reuse the key code.
				scan = int(ev.Code)
			}
			var action Action
			switch ev.Value {
			case 1:
				action = ActionDown
			case 0:
				action = ActionUp
			default:
				action = ActionOther
			}
			ch <- KeyEvent{DeviceID: id, ScanCode: scan, KeyCode: uint16(ev.Code), Action: action}
		case evdev.EV_SYN:
			lastScan = -1
		}
	}
}

func (r *Registry) detach(id int, path string) {
	r.mu.Lock()
	dev := r.devs[id]
	delete(r.devs, id)
	delete(r.names, id)
	delete(r.paths, path)
	r.mu.Unlock()

	if dev != nil {
		dev.Close()
		log.Printf("detached device %d (%s)", id, path)
	}
}

// Close releases all open devices.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, dev := range r.devs {
		dev.Ungrab()
		dev.Close()
		delete(r.devs, id)
		delete(r.names, id)
	}
	r.paths = make(map[string]int)
}

// ScanDevices walks the existing event nodes and attaches every device
// matching one of the candidate names.
func ScanDevices(reg *Registry, candidates []string, ch chan<- KeyEvent) error {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return fmt.Errorf("list input devices: %w", err)
	}
	for _, p := range paths {
		if err := reg.Attach(p.Path, candidates, ch); err != nil {
			log.Printf("skipping %s: %v", p.Path, err)
		}
	}
	return nil
}
