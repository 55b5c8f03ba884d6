package rtt

// DownChannel is the target side of a host to target channel.
type DownChannel struct {
	channel
}

// Read copies up to len(p) pending bytes into p and returns the count. It
// never waits; 0 means nothing is pending right now.
func (c *DownChannel) Read(p []byte) int {
	if len(p) == 0 {
		return 0
	}
	// the write offset must be loaded before the buffer is read.
	write := c.mem.mustLoad(c.desc + DescWrite)
	read := c.mem.mustLoad(c.desc + DescRead)
	n := usedSpace(write, read, c.size)
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	first := copy(p[:n], c.buf[read:])
	copy(p[first:n], c.buf)
	read += uint32(n)
	if read >= c.size {
		read -= c.size
	}
	// the bytes must be copied out before the space is handed back.
	c.mem.mustStore(c.desc+DescRead, read)
	return n
}

// Pending returns the number of bytes waiting to be read.
func (c *DownChannel) Pending() int {
	write, read := c.offsets()
	return usedSpace(write, read, c.size)
}
