// Package monitoring is the process-wide diagnostic logging seam. Libraries
// log through Logf instead of the log package directly, so commands and tests
// can redirect or silence diagnostics in one place.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
