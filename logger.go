package tideflow

import (
	"log"
	"os"
	"sync"
)

var (
	loggerMu sync.RWMutex
	logger   = log.New(os.Stderr, "[tideflow] ", log.LstdFlags)
)

// SetLogger replaces the package logger. Pass a logger writing to
// io.Discard to silence the library. A nil logger is ignored.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func logf(format string, args ...any) {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	l.Printf(format, args...)
}
