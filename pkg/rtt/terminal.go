package rtt

import "io"

const (
	// MaxTerminals is the number of virtual terminals one up channel carries.
	MaxTerminals = 16
	// TerminalSwitch starts the two byte sequence selecting a terminal; the
	// second byte is the terminal id, '0'-'9' or 'A'-'F'.
	TerminalSwitch = 0xff
)

const terminalIDs = "0123456789ABCDEF"

// Terminal multiplexes virtual terminals over one up channel. Terminal 0 is
// active initially, and the switch sequence is only sent when the terminal
// changes. Like UpChannel, it is not safe for concurrent writers.
type Terminal struct {
	ch      *UpChannel
	current uint8
}

// NewTerminal wraps ch. The host must not have seen a switch sequence on ch
// yet.
func NewTerminal(ch *UpChannel) *Terminal {
	return &Terminal{ch: ch}
}

// Channel returns the underlying up channel.
func (t *Terminal) Channel() *UpChannel {
	return t.ch
}

// Current returns the active terminal.
func (t *Terminal) Current() int {
	return int(t.current)
}

// Write writes p to terminal n, of which only the low four bits are used,
// and returns the number of bytes of p written. The switch sequence is never
// split: a TrimOnFull channel writes it like SkipOnFull. If it doesn't fit,
// p is dropped as well and the active terminal stays unchanged.
func (t *Terminal) Write(n int, p []byte) int {
	if len(p) == 0 {
		return 0
	}
	id := uint8(n) & (MaxTerminals - 1)
	if id != t.current {
		mode := t.ch.Mode()
		if mode == TrimOnFull {
			mode = SkipOnFull
		}
		if written, _ := t.ch.writeMode(nil, mode, []byte{TerminalSwitch, terminalIDs[id]}); written == 0 {
			return 0
		}
		t.current = id
	}
	return t.ch.Write(p)
}

// WriteString writes s to terminal n like Write.
func (t *Terminal) WriteString(n int, s string) int {
	return t.Write(n, []byte(s))
}

// Writer adapts terminal n to io.Writer. Like UpChannel.Writer, dropped
// bytes are reported as written.
func (t *Terminal) Writer(n int) io.Writer {
	return terminalWriter{t: t, n: n}
}

type terminalWriter struct {
	t *Terminal
	n int
}

func (w terminalWriter) Write(p []byte) (int, error) {
	w.t.Write(w.n, p)
	return len(p), nil
}
