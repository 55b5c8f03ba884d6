package rtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testBase = 0x20000000

func newTestChannels(t *testing.T, cfg Config) *Channels {
	chs, err := Init(NewMemory(testBase, 64*1024), cfg)
	require.NoError(t, err)
	return chs
}

func newTestUp(t *testing.T, size int, mode Mode) *UpChannel {
	return newTestChannels(t, Config{Up: []ChannelConfig{{Size: size, Mode: mode}}}).Up[0]
}

func newTestDown(t *testing.T, size int) *DownChannel {
	return newTestChannels(t, Config{Down: []ChannelConfig{{Size: size}}}).Down[0]
}

// setOffsets places both offsets, as if the channel had been used before.
func setOffsets(c *channel, write, read uint32) {
	c.mem.mustStore(c.desc+DescWrite, write)
	c.mem.mustStore(c.desc+DescRead, read)
}

// hostDrain consumes everything pending on an up channel, the way a probe does.
func hostDrain(c *channel) []byte {
	write := c.mem.mustLoad(c.desc + DescWrite)
	read := c.mem.mustLoad(c.desc + DescRead)
	n := usedSpace(write, read, c.size)
	out := make([]byte, n)
	first := copy(out, c.buf[read:])
	copy(out[first:], c.buf)
	c.mem.mustStore(c.desc+DescRead, (read+uint32(n))%c.size)
	return out
}

// hostSend produces into a down channel as much of p as fits.
func hostSend(c *channel, p []byte) int {
	read := c.mem.mustLoad(c.desc + DescRead)
	write := c.mem.mustLoad(c.desc + DescWrite)
	n := freeSpace(write, read, c.size)
	if n > len(p) {
		n = len(p)
	}
	first := copy(c.buf[write:], p[:n])
	copy(c.buf, p[first:n])
	c.mem.mustStore(c.desc+DescWrite, (write+uint32(n))%c.size)
	return n
}
