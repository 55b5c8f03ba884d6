package rtt

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Memory is the target RAM region holding the control block, channel
// buffers and channel names.
//
// Addresses are 32-bit target addresses starting at Base. Address 0 is the
// null pointer, so Base must not be 0. Space is handed out once by Alloc and
// never released.
type Memory struct {
	base  uint32
	words []uint32
	bytes []byte

	allocLock sync.Mutex
	next      uint32
	strings   map[string]uint32
}

// NewMemory creates a Memory of size bytes (rounded up to a word) mapped at base.
func NewMemory(base uint32, size int) *Memory {
	if base == 0 || base&3 != 0 {
		panic("rtt: memory base must be non-zero and word aligned")
	}
	if size <= 0 {
		panic("rtt: memory size must be positive")
	}
	words := make([]uint32, (size+3)/4)
	return &Memory{
		base:    base,
		words:   words,
		bytes:   unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4),
		strings: make(map[string]uint32),
	}
}

// Base returns the address of the first byte.
func (m *Memory) Base() uint32 {
	return m.base
}

// Size returns the size in bytes.
func (m *Memory) Size() int {
	return len(m.bytes)
}

// Free returns the number of bytes not yet allocated.
func (m *Memory) Free() int {
	m.allocLock.Lock()
	defer m.allocLock.Unlock()
	return len(m.bytes) - int(m.next)
}

// Alloc reserves size bytes, word aligned, and returns the address.
func (m *Memory) Alloc(size int) (uint32, error) {
	if size <= 0 {
		return 0, ErrInvalidSize
	}
	m.allocLock.Lock()
	defer m.allocLock.Unlock()
	return m.allocLocked(size)
}

func (m *Memory) allocLocked(size int) (uint32, error) {
	aligned := (uint64(size) + 3) &^ 3
	if uint64(m.next)+aligned > uint64(len(m.bytes)) {
		return 0, ErrOutOfMemory
	}
	addr := m.base + m.next
	m.next += uint32(aligned)
	return addr, nil
}

// CString places s NUL terminated and returns its address. The same string
// is only placed once; the empty string maps to the null pointer.
func (m *Memory) CString(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	m.allocLock.Lock()
	defer m.allocLock.Unlock()
	if addr, ok := m.strings[s]; ok {
		return addr, nil
	}
	addr, err := m.allocLocked(len(s) + 1)
	if err != nil {
		return 0, err
	}
	off := addr - m.base
	copy(m.bytes[off:], s)
	m.bytes[off+uint32(len(s))] = 0
	m.strings[s] = addr
	return addr, nil
}

// Contains reports whether [addr, addr+size) lies within the memory.
func (m *Memory) Contains(addr, size uint32) bool {
	if addr < m.base {
		return false
	}
	off := uint64(addr - m.base)
	return off+uint64(size) <= uint64(len(m.bytes))
}

// LoadUint32 atomically loads the aligned word at addr.
func (m *Memory) LoadUint32(addr uint32) (uint32, error) {
	p, err := m.word(addr)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(p), nil
}

// StoreUint32 atomically stores v into the aligned word at addr.
func (m *Memory) StoreUint32(addr, v uint32) error {
	p, err := m.word(addr)
	if err != nil {
		return err
	}
	atomic.StoreUint32(p, v)
	return nil
}

// ReadAt copies len(p) bytes starting at addr into p.
func (m *Memory) ReadAt(p []byte, addr uint32) error {
	if !m.Contains(addr, uint32(len(p))) {
		return &AddressError{Addr: addr, Size: uint32(len(p))}
	}
	copy(p, m.bytes[addr-m.base:])
	return nil
}

// WriteAt copies p into memory starting at addr.
func (m *Memory) WriteAt(p []byte, addr uint32) error {
	if !m.Contains(addr, uint32(len(p))) {
		return &AddressError{Addr: addr, Size: uint32(len(p))}
	}
	copy(m.bytes[addr-m.base:], p)
	return nil
}

func (m *Memory) word(addr uint32) (*uint32, error) {
	if addr&3 != 0 || !m.Contains(addr, 4) {
		return nil, &AddressError{Addr: addr, Size: 4}
	}
	return &m.words[(addr-m.base)>>2], nil
}

// slice returns the live view of [addr, addr+size). The range must have been
// validated by the caller.
func (m *Memory) slice(addr, size uint32) []byte {
	off := addr - m.base
	return m.bytes[off : off+size : off+size]
}

// mustLoad and mustStore are used on descriptor fields whose addresses were
// validated when the handle was created.
func (m *Memory) mustLoad(addr uint32) uint32 {
	return atomic.LoadUint32(&m.words[(addr-m.base)>>2])
}

func (m *Memory) mustStore(addr, v uint32) {
	atomic.StoreUint32(&m.words[(addr-m.base)>>2], v)
}
