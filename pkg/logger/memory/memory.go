package memory

import "sync"

// Entry is one captured log call.
type Entry struct {
	Level   string
	Message string
	Keyvals []any
}

// MemoryLogger implements LoggerInstance by capturing entries in memory.
// Used in tests to assert on log output.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Entries returns a copy of everything logged so far.
func (m *MemoryLogger) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// Reset discards all captured entries.
func (m *MemoryLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

func (m *MemoryLogger) record(level, message string, keyvals []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, Entry{Level: level, Message: message, Keyvals: keyvals})
}

// Log captures a message at the default level.
func (m *MemoryLogger) Log(message string, keyvals ...any) {
	m.record("LOG", message, keyvals)
}

// Info captures a message at INFO level.
func (m *MemoryLogger) Info(message string, keyvals ...any) {
	m.record("INFO", message, keyvals)
}

// Warn captures a message at WARN level.
func (m *MemoryLogger) Warn(message string, keyvals ...any) {
	m.record("WARN", message, keyvals)
}

// Error captures a message at ERROR level.
func (m *MemoryLogger) Error(message string, keyvals ...any) {
	m.record("ERROR", message, keyvals)
}

// Debug captures a message at DEBUG level.
func (m *MemoryLogger) Debug(message string, keyvals ...any) {
	m.record("DEBUG", message, keyvals)
}

// Fatal captures a message at FATAL level. Unlike process loggers it does
// not terminate, so soft failure paths remain assertable.
func (m *MemoryLogger) Fatal(message string, keyvals ...any) {
	m.record("FATAL", message, keyvals)
}
