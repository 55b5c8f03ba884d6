// Package panicrtt reports panics over up channel 0 of the current control
// block.
//
//	func main() {
//	    defer panicrtt.Handler()
//	    ...
//	}
package panicrtt

import (
	"runtime/debug"

	"github.com/robotalks/rtt.go/pkg/rtt"
)

// Halt is called after a recovered panic has been reported. The default
// never returns.
var Halt = func() {
	select {}
}

// Handler recovers a panic, reports it and halts. It must be deferred
// directly. Halt runs inside the print critical section, so the print
// functions stay blocked for every other goroutine while halted.
func Handler() {
	if v := recover(); v != nil {
		rtt.InPrintCriticalSection(func() {
			report(v)
			Halt()
		})
	}
}

// Report writes "panicked: <v>" and the current goroutine stack to up
// channel 0, switching the channel to BlockOnFull so nothing is dropped.
// It runs inside the print critical section and reports whether a channel
// was available.
func Report(v interface{}) bool {
	var ok bool
	rtt.InPrintCriticalSection(func() {
		ok = report(v)
	})
	return ok
}

func report(v interface{}) bool {
	ch := rtt.ConjureUp(0)
	if ch == nil {
		return false
	}
	ch.SetMode(rtt.BlockOnFull)
	ch.Printf("panicked: %v\n", v)
	ch.Write(debug.Stack())
	return true
}
