package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// DisabledScanCode is assigned to a role whose scan-code file is missing
// or malformed. No kernel scan code is negative, so the role never fires.
const DisabledScanCode = -1

// readOneLine returns the first line of a file with whitespace trimmed.
func readOneLine(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// loadScanCode reads a single decimal scan code from a sysfs/procfs node.
// Any failure disables the role rather than failing startup.
func loadScanCode(path string) int {
	line, err := readOneLine(path)
	if err != nil {
		log.Printf("scan code %s unreadable, role disabled: %v", path, err)
		return DisabledScanCode
	}
	code, err := strconv.Atoi(line)
	if err != nil || code < 0 {
		log.Printf("scan code %s malformed (%q), role disabled", path, line)
		return DisabledScanCode
	}
	return code
}

// writeAttr writes a string value to a sysfs attribute file.
func writeAttr(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// writeAttrInt writes an integer value to a sysfs attribute file.
func writeAttrInt(path string, value int) error {
	return writeAttr(path, strconv.Itoa(value))
}

// readAttrInt reads an integer attribute, returning def on any failure.
func readAttrInt(path string, def int) int {
	line, err := readOneLine(path)
	if err != nil {
		return def
	}
	v, err := strconv.Atoi(line)
	if err != nil {
		return def
	}
	return v
}
