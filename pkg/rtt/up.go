package rtt

import (
	"context"
	"fmt"
	"io"
	"runtime"
)

// UpChannel is the target side of a target to host channel.
//
// A handle is not safe for concurrent writers: code writing one channel
// from several contexts must serialize the writes itself, e.g. with the
// same CriticalSection the print functions use.
type UpChannel struct {
	channel
}

// Write transfers p to the host according to the channel mode and returns
// the number of bytes written:
//
//   - SkipOnFull writes all of p or nothing.
//   - TrimOnFull writes as much of p as currently fits.
//   - BlockOnFull waits for the host to drain the buffer until all of p is
//     written. Without a host it never returns.
func (c *UpChannel) Write(p []byte) int {
	n, _ := c.write(nil, p)
	return n
}

// WriteContext is Write where a BlockOnFull wait ends when ctx is done. It
// returns the bytes written so far together with ctx.Err() in that case.
func (c *UpChannel) WriteContext(ctx context.Context, p []byte) (int, error) {
	return c.write(ctx, p)
}

// WriteString writes s like Write.
func (c *UpChannel) WriteString(s string) int {
	return c.Write([]byte(s))
}

// Printf formats and writes the result with a single Write.
func (c *UpChannel) Printf(format string, args ...interface{}) int {
	return c.Write(fmt.Appendf(nil, format, args...))
}

// Writer adapts the channel to io.Writer. Bytes dropped by the channel
// mode are still reported as written: a full buffer is not an error.
func (c *UpChannel) Writer() io.Writer {
	return upWriter{c}
}

// Free returns the bytes that can be written without dropping or waiting.
func (c *UpChannel) Free() int {
	write, read := c.offsets()
	return freeSpace(write, read, c.size)
}

func (c *UpChannel) write(ctx context.Context, p []byte) (int, error) {
	return c.writeMode(ctx, c.Mode(), p)
}

func (c *UpChannel) writeMode(ctx context.Context, mode Mode, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	switch mode {
	case SkipOnFull:
		return c.transfer(p, true), nil
	case BlockOnFull:
		var done <-chan struct{}
		if ctx != nil {
			done = ctx.Done()
		}
		total := 0
		for {
			total += c.transfer(p[total:], false)
			if total >= len(p) {
				return total, nil
			}
			if done != nil {
				select {
				case <-done:
					return total, ctx.Err()
				default:
				}
			}
			runtime.Gosched()
		}
	default:
		return c.transfer(p, false), nil
	}
}

// transfer copies as much of p as fits (nothing unless all of p fits when
// whole is set) and publishes the new write offset.
func (c *UpChannel) transfer(p []byte, whole bool) int {
	// the read offset must be loaded before the buffer is overwritten.
	read := c.mem.mustLoad(c.desc + DescRead)
	write := c.mem.mustLoad(c.desc + DescWrite)
	if write >= c.size && read < c.size {
		write = read
	}
	n := freeSpace(write, read, c.size)
	if n > len(p) {
		n = len(p)
	}
	if n == 0 || (whole && n < len(p)) {
		return 0
	}
	first := copy(c.buf[write:], p[:n])
	copy(c.buf, p[first:n])
	write += uint32(n)
	if write >= c.size {
		write -= c.size
	}
	// the bytes must be in place before the offset advertising them.
	c.mem.mustStore(c.desc+DescWrite, write)
	return n
}

type upWriter struct {
	ch *UpChannel
}

func (w upWriter) Write(p []byte) (int, error) {
	w.ch.Write(p)
	return len(p), nil
}
