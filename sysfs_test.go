package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeNode(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScanCode(t *testing.T) {
	assert.Equal(t, 250, loadScanCode(writeNode(t, "250\n")))
	assert.Equal(t, 116, loadScanCode(writeNode(t, "  116  \n")))
}

func TestLoadScanCodeDisablesRoleOnBadInput(t *testing.T) {
	assert.Equal(t, DisabledScanCode, loadScanCode(writeNode(t, "banana\n")))
	assert.Equal(t, DisabledScanCode, loadScanCode(writeNode(t, "")))
	assert.Equal(t, DisabledScanCode, loadScanCode(writeNode(t, "-7\n")))
	assert.Equal(t, DisabledScanCode, loadScanCode(filepath.Join(t.TempDir(), "missing")))
}

func TestReadOneLineTakesFirstLine(t *testing.T) {
	line, err := readOneLine(writeNode(t, "first\nsecond\n"))
	require.NoError(t, err)
	assert.Equal(t, "first", line)
}

func TestReadAttrInt(t *testing.T) {
	assert.Equal(t, 1023, readAttrInt(writeNode(t, "1023\n"), 255))
	assert.Equal(t, 255, readAttrInt(writeNode(t, "junk\n"), 255))
	assert.Equal(t, 255, readAttrInt(filepath.Join(t.TempDir(), "missing"), 255))
}
