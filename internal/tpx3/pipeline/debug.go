package pipeline

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three verbosity tiers independently. A nil
// writer disables that tier entirely rather than writing to it.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = newLogger("[tpx3decode] ", ops)
	diagLogger = newLogger("[tpx3decode] ", diag)
	traceLogger = newLogger("[tpx3decode] ", trace)
}

// SetVerboseLevel maps the configuration's 1-4 verbose_level onto the three
// logger tiers: level 1 enables ops only; levels 2 and 3 both add diag
// (per-stage summaries) and behave the same; level 4 additionally enables
// trace. No per-chunk or per-packet messages are logged at any level.
func SetVerboseLevel(level int, w io.Writer) {
	switch {
	case level <= 1:
		SetLogWriters(w, nil, nil)
	case level == 2, level == 3:
		SetLogWriters(w, w, nil)
	default:
		SetLogWriters(w, w, w)
	}
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...interface{}) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

func tracef(format string, args ...interface{}) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
