package logging

import (
	"encoding/json"
	"net"
	"os"
	"time"
)

// GelfWriter sends GELF messages over UDP. It consumes the JSON lines
// produced by a zap JSON encoder, one entry per Write, so it can back a
// zapcore.Core directly.
type GelfWriter struct {
	conn     net.Conn
	hostname string
	service  string
}

// NewGelfWriter creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func NewGelfWriter(addr, service string) (*GelfWriter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "oxisubmit-server"
	}
	if service == "" {
		service = "oxisubmit"
	}

	return &GelfWriter{conn: conn, hostname: hostname, service: service}, nil
}

// syslog severities keyed by zap level name.
var gelfLevels = map[string]int{
	"debug":  7,
	"info":   6,
	"warn":   4,
	"error":  3,
	"dpanic": 2,
	"panic":  2,
	"fatal":  2,
}

// Write implements io.Writer. Each call sends one GELF message; entry fields
// other than level/msg/ts become "_"-prefixed additional fields.
func (w *GelfWriter) Write(p []byte) (int, error) {
	msg := w.message(p)
	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	_, _ = w.conn.Write(payload)
	return len(p), nil
}

func (w *GelfWriter) message(p []byte) map[string]any {
	gelf := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		gelf["short_message"] = string(p)
		return gelf
	}

	for k, v := range entry {
		switch k {
		case "msg":
			gelf["short_message"] = v
		case "level":
			if name, ok := v.(string); ok {
				if lvl, ok := gelfLevels[name]; ok {
					gelf["level"] = lvl
				}
			}
		case "ts":
			if ts, ok := v.(float64); ok {
				gelf["timestamp"] = ts
			}
		case "stacktrace":
			gelf["full_message"] = v
		case "id":
			// GELF forbids the "_id" additional field
			gelf["_entry_id"] = v
		default:
			gelf["_"+k] = v
		}
	}
	if _, ok := gelf["short_message"]; !ok {
		gelf["short_message"] = "-"
	}
	return gelf
}

// Sync implements zapcore.WriteSyncer; UDP writes are unbuffered.
func (w *GelfWriter) Sync() error {
	return nil
}

// Close releases the UDP socket.
func (w *GelfWriter) Close() error {
	return w.conn.Close()
}
