package rtt

import (
	"fmt"
	"strings"
)

//go:generate go tool stringer -type=Mode

// Mode selects what a write does when the up channel lacks free space.
// The values are the flag encoding shared with host tools.
type Mode uint32

const (
	// SkipOnFull drops the whole write unless it fits completely.
	SkipOnFull Mode = iota
	// TrimOnFull writes as many bytes as fit and drops the rest.
	TrimOnFull
	// BlockOnFull spins until the host has drained enough to write everything.
	// It never times out: if no probe is attached the caller spins forever.
	BlockOnFull
)

// DefaultMode is the mode of channels configured without one.
const DefaultMode = TrimOnFull

const modeMask = 3

// IsValid checks if it's a known mode.
func (m Mode) IsValid() bool {
	return m <= BlockOnFull
}

// ParseMode parses "skip", "trim", "block" or the constant names.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "skiponfull", "noblockskip":
		return SkipOnFull, nil
	case "trim", "trimonfull", "noblocktrim":
		return TrimOnFull, nil
	case "block", "blockonfull", "blockiffull":
		return BlockOnFull, nil
	}
	return DefaultMode, fmt.Errorf("unknown channel mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
