package accesslog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDefaultConfig(t *testing.T) {
	entry := Entry{
		RemoteAddr:  "203.0.113.5",
		RequestLine: "GET /index.html HTTP/1.1",
		Status:      200,
		BodyBytes:   1234,
	}

	line := Format(DefaultConfig(), entry)
	assert.Contains(t, line, "203.0.113.5 - - [")
	assert.Contains(t, line, `"GET /index.html HTTP/1.1" 200 1234`)
}

func TestFormatCustomTemplate(t *testing.T) {
	cfg := Config{Format: "${status} ${bytes_out} ${latency_human}"}
	entry := Entry{Status: 404, BodyBytes: 0, Latency: 2500 * time.Microsecond}

	line := Format(cfg, entry)
	assert.Equal(t, "404 0 2.50ms", line)
}

func TestFormatLatencyUnits(t *testing.T) {
	assert.Equal(t, "500ns", formatLatency(500*time.Nanosecond))
	assert.Equal(t, "1.50µs", formatLatency(1500*time.Nanosecond))
	assert.Equal(t, "2.50ms", formatLatency(2500*time.Microsecond))
	assert.Equal(t, "1.50s", formatLatency(1500*time.Millisecond))
}
