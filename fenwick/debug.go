//go:build debug

package fenwick

import (
	"fmt"
	"log"
	"os"
)

var traceLogger = log.New(os.Stderr, "[FENWICK DEBUG] ", log.Ltime|log.Lmicroseconds|log.Lshortfile)

// trace logs a per-operation trace when built with -tags debug.
func trace(format string, args ...interface{}) {
	traceLogger.Output(2, fmt.Sprintf(format, args...))
}

// assertIndex panics if i is outside [0, n) — debug builds only, per the
// BadIndex contract: release builds trust the caller and never validate.
func assertIndex(i, n int) {
	if i < 0 || i >= n {
		panic(fmt.Sprintf("fenwick: index %d out of range [0, %d)", i, n))
	}
}
