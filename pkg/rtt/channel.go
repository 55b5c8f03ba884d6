package rtt

// channel is the state shared by up and down handles: the descriptor
// address and a live view of the buffer it describes.
type channel struct {
	mem   *Memory
	desc  uint32
	index int
	buf   []byte
	size  uint32
}

func openChannel(mem *Memory, desc uint32, index int) (channel, bool) {
	addr := mem.mustLoad(desc + DescBuffer)
	size := mem.mustLoad(desc + DescSize)
	if addr == 0 || size < 2 || !mem.Contains(addr, size) {
		return channel{}, false
	}
	return channel{
		mem:   mem,
		desc:  desc,
		index: index,
		buf:   mem.slice(addr, size),
		size:  size,
	}, true
}

// Index returns the channel number.
func (c *channel) Index() int {
	return c.index
}

// Size returns the buffer size. One byte of it is never used.
func (c *channel) Size() int {
	return int(c.size)
}

// Mode returns the current mode.
func (c *channel) Mode() Mode {
	return Mode(c.mem.mustLoad(c.desc+DescFlags) & modeMask)
}

// SetMode changes the mode, effective from the next write. Bits outside
// the mode field are preserved.
func (c *channel) SetMode(mode Mode) {
	flags := c.mem.mustLoad(c.desc + DescFlags)
	c.mem.mustStore(c.desc+DescFlags, flags&^modeMask|uint32(mode)&modeMask)
}

// Name returns the channel name, empty if none.
func (c *channel) Name() string {
	return c.mem.stringAt(c.mem.mustLoad(c.desc + DescName))
}

// SetName replaces the channel name. Names are interned in target memory,
// so switching between a few names doesn't exhaust it.
func (c *channel) SetName(name string) error {
	addr, err := c.mem.CString(name)
	if err != nil {
		return err
	}
	c.mem.mustStore(c.desc+DescName, addr)
	return nil
}

// offsets loads the write and read offsets. An offset the peer left out of
// range is reported as is; callers decide how to treat it.
func (c *channel) offsets() (write, read uint32) {
	write = c.mem.mustLoad(c.desc + DescWrite)
	read = c.mem.mustLoad(c.desc + DescRead)
	return
}

// freeSpace is the number of bytes a producer may add. An out of range read
// offset leaves no space.
func freeSpace(write, read, size uint32) int {
	if read >= size || write >= size {
		return 0
	}
	if read > write {
		return int(read - write - 1)
	}
	return int(size - write + read - 1)
}

// usedSpace is the number of bytes a consumer may take. An out of range
// write offset reads as empty.
func usedSpace(write, read, size uint32) int {
	if read >= size || write >= size {
		return 0
	}
	if write >= read {
		return int(write - read)
	}
	return int(size - read + write)
}

func (m *Memory) stringAt(addr uint32) string {
	if addr == 0 || !m.Contains(addr, 1) {
		return ""
	}
	b := m.bytes[addr-m.base:]
	for n, c := range b {
		if c == 0 {
			return string(b[:n])
		}
	}
	return string(b)
}
