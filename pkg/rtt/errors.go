package rtt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize indicates a channel buffer or allocation of zero size.
	ErrInvalidSize = errors.New("invalid size")
	// ErrTooManyChannels indicates more channels than MaxUpChannels or
	// MaxDownChannels were configured.
	ErrTooManyChannels = errors.New("too many channels")
	// ErrInvalidMode indicates a mode outside SkipOnFull..BlockOnFull.
	ErrInvalidMode = errors.New("invalid mode")
	// ErrOutOfMemory indicates the Memory can't hold the requested layout.
	ErrOutOfMemory = errors.New("out of memory")
)

// AddressError reports an access outside the Memory or a misaligned word access.
type AddressError struct {
	Addr uint32
	Size uint32
}

// Error implements error.
func (e *AddressError) Error() string {
	return fmt.Sprintf("bad memory access at 0x%08x (%d bytes)", e.Addr, e.Size)
}
