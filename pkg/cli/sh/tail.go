package sh

import (
	"context"
	"sync"
)

// DefaultTailSize is the number of bytes kept per channel.
const DefaultTailSize = 4096

// Tail implements probe.UpHandler, keeping the most recent bytes of every
// up channel until they are taken.
type Tail struct {
	Size int

	lock     sync.Mutex
	channels map[int][]byte
	dropped  map[int]uint64
}

// NewTail creates a Tail keeping size bytes per channel.
func NewTail(size int) *Tail {
	if size <= 0 {
		size = DefaultTailSize
	}
	return &Tail{
		Size:     size,
		channels: make(map[int][]byte),
		dropped:  make(map[int]uint64),
	}
}

// HandleUp implements probe.UpHandler.
func (t *Tail) HandleUp(ctx context.Context, channel int, data []byte) {
	t.lock.Lock()
	defer t.lock.Unlock()
	buf := append(t.channels[channel], data...)
	if over := len(buf) - t.Size; over > 0 {
		t.dropped[channel] += uint64(over)
		buf = append(buf[:0:0], buf[over:]...)
	}
	t.channels[channel] = buf
}

// Take returns and clears up to limit bytes (all if limit <= 0) kept for
// channel.
func (t *Tail) Take(channel, limit int) []byte {
	t.lock.Lock()
	defer t.lock.Unlock()
	buf := t.channels[channel]
	if limit <= 0 || limit > len(buf) {
		limit = len(buf)
	}
	out := append([]byte(nil), buf[:limit]...)
	if rest := buf[limit:]; len(rest) > 0 {
		t.channels[channel] = rest
	} else {
		delete(t.channels, channel)
	}
	return out
}

// Buffered returns the bytes kept for channel.
func (t *Tail) Buffered(channel int) int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.channels[channel])
}

// Dropped returns the bytes of channel discarded because nobody took them.
func (t *Tail) Dropped(channel int) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.dropped[channel]
}
