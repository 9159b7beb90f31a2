package pipeline

import (
	"io"
	"log"
	"sync"
)

type logStream int

const (
	streamOps logStream = iota
	streamDiag
	streamTrace
	numStreams
)

var (
	logMu   sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetLogWriters routes the ops, diag and trace streams of the pipeline
// package. A nil writer silences its stream. Safe to call while frames are
// being processed.
func SetLogWriters(ops, diag, trace io.Writer) {
	var next [numStreams]*log.Logger
	for s, w := range [numStreams]io.Writer{ops, diag, trace} {
		if w != nil {
			next[s] = log.New(w, "[pipeline] ", log.LstdFlags|log.Lmicroseconds)
		}
	}
	logMu.Lock()
	loggers = next
	logMu.Unlock()
}

func logf(s logStream, format string, args ...interface{}) {
	logMu.RLock()
	l := loggers[s]
	logMu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// opsf: frames that will yield degraded query results.
func opsf(format string, args ...interface{}) { logf(streamOps, format, args...) }

// diagf: per-frame summaries and relation changes.
func diagf(format string, args ...interface{}) { logf(streamDiag, format, args...) }

// tracef: per-strip and per-pair counts.
func tracef(format string, args ...interface{}) { logf(streamTrace, format, args...) }
