package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

var (
	testLoggerInstance Logger
	testLoggerOnce     sync.Once
)

// NewTestLogger returns a shared logger that only writes errors to stderr.
func NewTestLogger() Logger {
	testLoggerOnce.Do(func() {
		var err error
		testLoggerInstance, err = NewLogger(Config{
			Level:     "error",
			Format:    "text",
			Output:    "stderr",
			Component: "test",
			Version:   "test",
		})
		if err != nil {
			panic(err)
		}
	})
	return testLoggerInstance
}

// LogCapture collects JSON log lines written by a capture logger.
type LogCapture struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *LogCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

// Messages returns all captured log output as a string.
func (c *LogCapture) Messages() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Contains checks if the captured log output contains the given substring.
func (c *LogCapture) Contains(substr string) bool {
	return strings.Contains(c.Messages(), substr)
}

// Entries decodes every captured line. Lines that are not JSON are skipped.
func (c *LogCapture) Entries() []map[string]interface{} {
	var out []map[string]interface{}
	for _, line := range strings.Split(c.Messages(), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err == nil {
			out = append(out, entry)
		}
	}
	return out
}

// Find returns the first entry whose message is msg
func (c *LogCapture) Find(msg string) (map[string]interface{}, bool) {
	for _, entry := range c.Entries() {
		if entry["msg"] == msg {
			return entry, true
		}
	}
	return nil, false
}

// Reset clears all captured messages.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
}

// NewCaptureLogger creates a debug level JSON logger writing to a LogCapture.
func NewCaptureLogger() (Logger, *LogCapture) {
	capture := &LogCapture{}
	log, err := NewLogger(Config{
		Level:     "debug",
		Format:    "json",
		Writer:    capture,
		Component: "test",
		Version:   "test",
	})
	if err != nil {
		panic(err)
	}
	return log, capture
}
