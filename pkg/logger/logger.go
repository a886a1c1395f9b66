// Package logger is the process-wide logging facade. Components log through
// the package-level functions; the binary decides which backends receive the
// records by calling Init.
package logger

import "sync"

// LoggerInstance is a logging backend.
type LoggerInstance interface {
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger fans each record out to every configured backend.
type Logger struct {
	instances []LoggerInstance
}

var (
	mu        sync.RWMutex
	singleton *Logger
)

func getSingleton() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return singleton
}

// Init replaces the global backends. Logging before Init is a no-op.
func Init(instances ...LoggerInstance) {
	mu.Lock()
	defer mu.Unlock()
	singleton = &Logger{
		instances: instances,
	}
}

func Debug(message string, keyvals ...any) {
	l := getSingleton()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		instance.Debug(message, keyvals...)
	}
}

func Info(message string, keyvals ...any) {
	l := getSingleton()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		instance.Info(message, keyvals...)
	}
}

func Warn(message string, keyvals ...any) {
	l := getSingleton()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		instance.Warn(message, keyvals...)
	}
}

func Error(message string, keyvals ...any) {
	l := getSingleton()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		instance.Error(message, keyvals...)
	}
}

// Fatal logs at FATAL level; backends are expected to terminate the process.
func Fatal(message string, keyvals ...any) {
	l := getSingleton()
	if l == nil {
		return
	}
	for _, instance := range l.instances {
		instance.Fatal(message, keyvals...)
	}
}
