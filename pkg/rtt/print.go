package rtt

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// CriticalSection runs fn without being preempted by any other context that
// may print. On a hosted platform a mutex is enough; firmware would disable
// interrupts.
type CriticalSection interface {
	Do(fn func())
}

// CriticalSectionFunc is func type of CriticalSection.
type CriticalSectionFunc func(fn func())

// Do implements CriticalSection.
func (f CriticalSectionFunc) Do(fn func()) {
	f(fn)
}

// MutexCriticalSection is a CriticalSection backed by sync.Mutex.
type MutexCriticalSection struct {
	lock sync.Mutex
}

// Do implements CriticalSection.
func (s *MutexCriticalSection) Do(fn func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	fn()
}

type criticalSectionRef struct {
	cs CriticalSection
}

var (
	defaultCriticalSection MutexCriticalSection

	printCS atomic.Pointer[criticalSectionRef]
	// printTerm is only accessed inside printCS.
	printTerm *Terminal
)

// SetPrintChannel sets the channel used by the print functions, guarded by
// a process-wide mutex.
func SetPrintChannel(ch *UpChannel) {
	SetPrintChannelCS(ch, &defaultCriticalSection)
}

// SetPrintChannelCS sets the channel used by the print functions and the
// critical section guarding it. It is meant to be called once at startup.
func SetPrintChannelCS(ch *UpChannel, cs CriticalSection) {
	printCS.Store(&criticalSectionRef{cs: cs})
	cs.Do(func() {
		printTerm = nil
		if ch != nil {
			printTerm = NewTerminal(ch)
		}
	})
}

// InPrintCriticalSection runs fn inside the critical section of the print
// functions, or directly if no print channel was ever set.
func InPrintCriticalSection(fn func()) {
	if ref := printCS.Load(); ref != nil {
		ref.cs.Do(fn)
		return
	}
	fn()
}

func withPrintTerminal(fn func(*Terminal)) {
	ref := printCS.Load()
	if ref == nil {
		return
	}
	ref.cs.Do(func() {
		if t := printTerm; t != nil {
			fn(t)
		}
	})
}

func printBytes(n int, b []byte) {
	withPrintTerminal(func(t *Terminal) {
		t.Write(n, b)
	})
}

func printing() bool {
	return printCS.Load() != nil
}

// Print formats like fmt.Print and writes to the print channel. Without a
// print channel it does nothing.
func Print(args ...interface{}) {
	PrintTerminal(0, args...)
}

// Println formats like fmt.Println and writes to the print channel.
func Println(args ...interface{}) {
	PrintlnTerminal(0, args...)
}

// Printf formats like fmt.Printf and writes to the print channel.
func Printf(format string, args ...interface{}) {
	PrintfTerminal(0, format, args...)
}

// PrintString writes s to the print channel.
func PrintString(s string) {
	withPrintTerminal(func(t *Terminal) {
		t.WriteString(0, s)
	})
}

// PrintTerminal is Print to virtual terminal n of the print channel.
func PrintTerminal(n int, args ...interface{}) {
	if printing() {
		printBytes(n, fmt.Append(nil, args...))
	}
}

// PrintlnTerminal is Println to virtual terminal n.
func PrintlnTerminal(n int, args ...interface{}) {
	if printing() {
		printBytes(n, fmt.Appendln(nil, args...))
	}
}

// PrintfTerminal is Printf to virtual terminal n.
func PrintfTerminal(n int, format string, args ...interface{}) {
	if printing() {
		printBytes(n, fmt.Appendf(nil, format, args...))
	}
}

// PrintWriter returns an io.Writer onto the print channel, e.g. for
// log.SetOutput. Each Write is one critical section.
func PrintWriter() io.Writer {
	return TerminalPrintWriter(0)
}

// TerminalPrintWriter is PrintWriter for virtual terminal n.
func TerminalPrintWriter(n int) io.Writer {
	return printWriter{n: n}
}

type printWriter struct {
	n int
}

func (w printWriter) Write(p []byte) (int, error) {
	printBytes(w.n, p)
	return len(p), nil
}
