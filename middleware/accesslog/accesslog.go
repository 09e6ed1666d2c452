// Package accesslog renders the per-request access line the
// connection handler emits after writing a response (spec §4.5 step
// 5: `peer - - [date] "first_line" status body_len`).
package accesslog

import (
	"strconv"
	"strings"
	"time"
)

// Config controls the rendered line's layout via placeholder tokens:
// ${remote_ip}, ${request_line}, ${status}, ${bytes_out}, ${time},
// ${latency_human}.
type Config struct {
	Format string
}

// DefaultConfig reproduces the literal access-line shape spec §4.5
// names.
func DefaultConfig() Config {
	return Config{
		Format: `${remote_ip} - - [${time}] "${request_line}" ${status} ${bytes_out}`,
	}
}

// Entry is one completed request/response exchange to render.
type Entry struct {
	RemoteAddr  string
	RequestLine string
	Status      int
	BodyBytes   int64
	Latency     time.Duration
}

// Format renders e according to cfg's template.
func Format(cfg Config, e Entry) string {
	msg := cfg.Format
	msg = strings.Replace(msg, "${remote_ip}", e.RemoteAddr, -1)
	msg = strings.Replace(msg, "${request_line}", e.RequestLine, -1)
	msg = strings.Replace(msg, "${status}", strconv.Itoa(e.Status), -1)
	msg = strings.Replace(msg, "${bytes_out}", strconv.FormatInt(e.BodyBytes, 10), -1)
	msg = strings.Replace(msg, "${time}", time.Now().UTC().Format("02/Jan/2006:15:04:05 -0700"), -1)
	msg = strings.Replace(msg, "${latency_human}", formatLatency(e.Latency), -1)
	return msg
}

// formatLatency renders d with the coarsest unit that keeps it >= 1.
func formatLatency(d time.Duration) string {
	if d < time.Microsecond {
		return strconv.FormatInt(d.Nanoseconds(), 10) + "ns"
	}
	if d < time.Millisecond {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Microsecond), 'f', 2, 64) + "µs"
	}
	if d < time.Second {
		return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Millisecond), 'f', 2, 64) + "ms"
	}
	return strconv.FormatFloat(float64(d.Nanoseconds())/float64(time.Second), 'f', 2, 64) + "s"
}
