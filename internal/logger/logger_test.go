package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit(t *testing.T) {
	Init()
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, ErrorLogger)
	assert.NotNil(t, DebugLogger)
}

func captureInfo() *bytes.Buffer {
	var buf bytes.Buffer
	InfoLogger = log.New(&buf, "INFO: ", 0)
	return &buf
}

func captureError() *bytes.Buffer {
	var buf bytes.Buffer
	ErrorLogger = log.New(&buf, "ERROR: ", 0)
	return &buf
}

func TestInfo(t *testing.T) {
	buf := captureInfo()

	Info("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestInfoWithFields(t *testing.T) {
	buf := captureInfo()

	Info("booking expired", "booking_id", 42, "status", "expired")

	output := buf.String()
	assert.Contains(t, output, "booking expired")
	assert.Contains(t, output, "booking_id=42")
	assert.Contains(t, output, "status=expired")
}

func TestInfof(t *testing.T) {
	buf := captureInfo()

	Infof("test %s", "message")

	assert.Contains(t, buf.String(), "test message")
}

func TestError(t *testing.T) {
	buf := captureError()

	Error("test error")

	assert.Contains(t, buf.String(), "test error")
}

func TestErrorWithFields(t *testing.T) {
	buf := captureError()

	Error("sweep failed", "error", assert.AnError)

	output := buf.String()
	assert.Contains(t, output, "sweep failed")
	assert.Contains(t, output, "error=")
}

func TestErrorf(t *testing.T) {
	buf := captureError()

	Errorf("test %s", "error")

	assert.Contains(t, buf.String(), "test error")
}

func TestFormatKVOddPair(t *testing.T) {
	// A dangling key is appended as-is rather than dropped.
	out := formatKV("msg", []interface{}{"key", 1, "orphan"})
	assert.Contains(t, out, "key=1")
	assert.Contains(t, out, "orphan")
}
