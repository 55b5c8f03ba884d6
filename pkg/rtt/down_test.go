package rtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadEmpty(t *testing.T) {
	ch := newTestDown(t, 16)
	buf := make([]byte, 8)
	require.Zero(t, ch.Read(buf))
	require.Zero(t, ch.Read(nil))
	require.Zero(t, ch.Pending())
}

func TestReadPartialAndWrap(t *testing.T) {
	ch := newTestDown(t, 8)
	setOffsets(&ch.channel, 6, 6)
	require.Equal(t, 7, hostSend(&ch.channel, []byte("abcdefghij")))
	require.Equal(t, 7, ch.Pending())

	buf := make([]byte, 3)
	require.Equal(t, 3, ch.Read(buf))
	require.Equal(t, "abc", string(buf))
	write, read := ch.offsets()
	require.Equal(t, uint32(5), write)
	require.Equal(t, uint32(1), read)

	buf = make([]byte, 16)
	require.Equal(t, 4, ch.Read(buf))
	require.Equal(t, "defg", string(buf[:4]))
	require.Zero(t, ch.Read(buf))
}

func TestReadRoundTrip(t *testing.T) {
	msg := []byte("reset; set led 1; get temperature;")
	for size := 2; size <= len(msg)+1; size++ {
		ch := newTestDown(t, size)
		var out []byte
		buf := make([]byte, 5)
		for sent := 0; sent < len(msg); {
			sent += hostSend(&ch.channel, msg[sent:])
			n := ch.Read(buf)
			out = append(out, buf[:n]...)
		}
		for n := ch.Read(buf); n > 0; n = ch.Read(buf) {
			out = append(out, buf[:n]...)
		}
		require.Equal(t, string(msg), string(out), "size %d", size)
	}
}

func TestReadUntrustedWriteOffset(t *testing.T) {
	ch := newTestDown(t, 8)
	setOffsets(&ch.channel, 9, 0)
	require.Zero(t, ch.Pending())
	require.Zero(t, ch.Read(make([]byte, 4)))
	_, read := ch.offsets()
	require.Zero(t, read)
}
