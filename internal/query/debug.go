package query

import (
	"io"
	"log"
	"sync"
)

// The query package writes no ops output.
var (
	logMu       sync.RWMutex
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the logging streams for the query package; ops is
// accepted for symmetry with the other packages and ignored. Pass nil to
// disable a stream. It may be called while queries are running.
func SetLogWriters(ops, diag, trace io.Writer) {
	diag2, trace2 := queryLogger(diag), queryLogger(trace)
	logMu.Lock()
	diagLogger, traceLogger = diag2, trace2
	logMu.Unlock()
}

func queryLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[query] ", log.LstdFlags|log.Lmicroseconds)
}

// diagf logs assumed-overlap fallbacks.
func diagf(format string, args ...interface{}) {
	logMu.RLock()
	l := diagLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// tracef logs every strip match of every query point.
func tracef(format string, args ...interface{}) {
	logMu.RLock()
	l := traceLogger
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}
