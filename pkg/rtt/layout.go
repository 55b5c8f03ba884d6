package rtt

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Signature identifies the control block to a host scanning target memory.
var Signature = [16]byte{'S', 'E', 'G', 'G', 'E', 'R', ' ', 'R', 'T', 'T'}

// Compiled maximum of channels per direction.
const (
	MaxUpChannels   = 16
	MaxDownChannels = 16
)

// Control block header layout.
const (
	HeaderSignature = 0
	HeaderUpCount   = 16
	HeaderDownCount = 20
	HeaderSize      = 24
)

// Channel descriptor layout. All fields are 32-bit words.
const (
	DescName       = 0
	DescBuffer     = 4
	DescSize       = 8
	DescWrite      = 12
	DescRead       = 16
	DescFlags      = 20
	DescriptorSize = 24
)

// SignatureWords returns the signature as the four words stored in memory.
func SignatureWords() (w [4]uint32) {
	for i := range w {
		w[i] = binary.LittleEndian.Uint32(Signature[i*4:])
	}
	return
}

// ChannelConfig describes one channel. The zero Mode is SkipOnFull.
type ChannelConfig struct {
	Name string
	Size int
	Mode Mode
}

// Config lists the channels of a control block. Index in the slice is the
// channel number.
type Config struct {
	Up   []ChannelConfig
	Down []ChannelConfig
}

// DefaultConfig is a 1024 byte "Terminal" up channel and a 16 byte
// "Terminal" down channel.
func DefaultConfig() Config {
	return Config{
		Up:   []ChannelConfig{{Name: "Terminal", Size: 1024, Mode: DefaultMode}},
		Down: []ChannelConfig{{Name: "Terminal", Size: 16, Mode: DefaultMode}},
	}
}

// PrintConfig is a single "Terminal" up channel, used by InitPrint.
func PrintConfig(mode Mode, size int) Config {
	return Config{
		Up: []ChannelConfig{{Name: "Terminal", Size: size, Mode: mode}},
	}
}

// Validate checks channel counts, sizes and modes.
func (c Config) Validate() error {
	if len(c.Up) > MaxUpChannels {
		return fmt.Errorf("%d up channels: %w", len(c.Up), ErrTooManyChannels)
	}
	if len(c.Down) > MaxDownChannels {
		return fmt.Errorf("%d down channels: %w", len(c.Down), ErrTooManyChannels)
	}
	for n, ch := range c.Up {
		if err := ch.validate(); err != nil {
			return fmt.Errorf("up channel %d: %w", n, err)
		}
	}
	for n, ch := range c.Down {
		if err := ch.validate(); err != nil {
			return fmt.Errorf("down channel %d: %w", n, err)
		}
	}
	return nil
}

func (c ChannelConfig) validate() error {
	// one slot is always kept empty, so a single byte buffer is valid but
	// never carries data.
	if c.Size < 1 || uint64(c.Size) > 1<<31 {
		return ErrInvalidSize
	}
	if !c.Mode.IsValid() {
		return ErrInvalidMode
	}
	return nil
}

// ControlBlock is an initialized control block in target memory.
type ControlBlock struct {
	mem  *Memory
	addr uint32
}

// Channels is the result of Init.
type Channels struct {
	Block *ControlBlock
	Up    []*UpChannel
	Down  []*DownChannel
}

var current atomic.Pointer[ControlBlock]

// Current returns the most recently initialized control block, or nil.
func Current() *ControlBlock {
	return current.Load()
}

// Init lays out the control block and channel buffers in mem and returns
// handles for every channel. The signature is written last: a host sees
// either no control block or a complete one.
//
// Init also registers the block as Current for the conjure functions. It is
// meant to run once at startup, before any other context can print.
func Init(mem *Memory, cfg Config) (*Channels, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nUp, nDown := len(cfg.Up), len(cfg.Down)
	addr, err := mem.Alloc(HeaderSize + (nUp+nDown)*DescriptorSize)
	if err != nil {
		return nil, fmt.Errorf("control block: %w", err)
	}
	cb := &ControlBlock{mem: mem, addr: addr}
	cb.clearSignature()
	mem.mustStore(addr+HeaderUpCount, uint32(nUp))
	mem.mustStore(addr+HeaderDownCount, uint32(nDown))

	for n, ch := range cfg.Up {
		if err = cb.setupChannel(cb.upDesc(n), ch); err != nil {
			return nil, fmt.Errorf("up channel %d: %w", n, err)
		}
	}
	for n, ch := range cfg.Down {
		if err = cb.setupChannel(cb.downDesc(n), ch); err != nil {
			return nil, fmt.Errorf("down channel %d: %w", n, err)
		}
	}
	cb.commitSignature()
	current.Store(cb)

	chs := &Channels{
		Block: cb,
		Up:    make([]*UpChannel, nUp),
		Down:  make([]*DownChannel, nDown),
	}
	for n := range chs.Up {
		chs.Up[n] = cb.ConjureUp(n)
	}
	for n := range chs.Down {
		chs.Down[n] = cb.ConjureDown(n)
	}
	return chs, nil
}

// InitPrint initializes a single up channel and installs it as the print
// channel with the default critical section.
func InitPrint(mem *Memory, mode Mode, size int) (*Channels, error) {
	chs, err := Init(mem, PrintConfig(mode, size))
	if err != nil {
		return nil, err
	}
	SetPrintChannel(chs.Up[0])
	return chs, nil
}

func (cb *ControlBlock) setupChannel(desc uint32, cfg ChannelConfig) error {
	buf, err := cb.mem.Alloc(cfg.Size)
	if err != nil {
		return err
	}
	name, err := cb.mem.CString(cfg.Name)
	if err != nil {
		return err
	}
	cb.mem.mustStore(desc+DescName, name)
	cb.mem.mustStore(desc+DescBuffer, buf)
	cb.mem.mustStore(desc+DescSize, uint32(cfg.Size))
	cb.mem.mustStore(desc+DescWrite, 0)
	cb.mem.mustStore(desc+DescRead, 0)
	cb.mem.mustStore(desc+DescFlags, uint32(cfg.Mode)&modeMask)
	return nil
}

func (cb *ControlBlock) clearSignature() {
	for n := 0; n < 4; n++ {
		cb.mem.mustStore(cb.addr+HeaderSignature+uint32(n*4), 0)
	}
}

// commitSignature runs after every descriptor store. A host may match the
// signature once word 2 lands, since word 3 is zero either way.
func (cb *ControlBlock) commitSignature() {
	for n, w := range SignatureWords() {
		cb.mem.mustStore(cb.addr+HeaderSignature+uint32(n*4), w)
	}
}

// Addr returns the address of the control block.
func (cb *ControlBlock) Addr() uint32 {
	return cb.addr
}

// Memory returns the memory holding the control block.
func (cb *ControlBlock) Memory() *Memory {
	return cb.mem
}

// Committed reports whether the signature is in place.
func (cb *ControlBlock) Committed() bool {
	for n, w := range SignatureWords() {
		if cb.mem.mustLoad(cb.addr+HeaderSignature+uint32(n*4)) != w {
			return false
		}
	}
	return true
}

// NumUp returns the up channel count as stored in memory.
func (cb *ControlBlock) NumUp() int {
	return boundedCount(cb.mem.mustLoad(cb.addr+HeaderUpCount), MaxUpChannels)
}

// NumDown returns the down channel count as stored in memory.
func (cb *ControlBlock) NumDown() int {
	return boundedCount(cb.mem.mustLoad(cb.addr+HeaderDownCount), MaxDownChannels)
}

func boundedCount(n uint32, limit int) int {
	if n > uint32(limit) {
		return limit
	}
	return int(n)
}

func (cb *ControlBlock) upDesc(n int) uint32 {
	return cb.addr + HeaderSize + uint32(n)*DescriptorSize
}

func (cb *ControlBlock) downDesc(n int) uint32 {
	return cb.addr + HeaderSize + uint32(cb.NumUp()+n)*DescriptorSize
}
